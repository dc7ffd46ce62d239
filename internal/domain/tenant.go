package domain

import "time"

// Tenant binds a User to a Tenancy. Name, Email and Phone mirror the linked
// user's contact details so tenancy-scoped listings render without joining
// users; after any successful save the mirror must equal the user's fields.
type Tenant struct {
	ID                     int64
	TenancyID              int64
	UserID                 int64
	Name                   string
	Email                  string
	Phone                  string
	PermittedOccupier      bool
	SkipFinancialReference bool
	SkipLandlordReference  bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
