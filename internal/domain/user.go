package domain

import (
	"strings"
	"time"
)

// User is a person known to the platform. A user may occupy any number of
// tenancies through Tenant records and is never deleted by this service.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name the way tenancy listings display it.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
