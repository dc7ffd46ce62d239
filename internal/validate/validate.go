package validate

import (
	"regexp"
	"strings"

	"github.com/lettingworks/tenancy-admin/internal/domain"
)

// Messages surfaced per field. The wording is part of the client contract and
// must not change without coordinating with the admin front end.
const (
	MsgEmail      = "Please enter a valid email address"
	MsgPhone      = "Please enter a valid phone number"
	MsgName       = "Please enter a name"
	MsgEmailTaken = "Email address is already in use"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)
)

// Errors collects field-scoped validation messages keyed by form field name.
type Errors map[string][]string

// Add appends a message for the given field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Rules control which optional user fields are treated as required. The
// tenant workflow always requires phone and name; other flows may not.
type Rules struct {
	RequirePhone bool
	RequireName  bool
}

// User checks a user record against the rules and returns nil when valid.
func User(u domain.User, rules Rules) Errors {
	errs := Errors{}
	if !emailPattern.MatchString(strings.TrimSpace(u.Email)) {
		errs.Add("email", MsgEmail)
	}
	if rules.RequireName && strings.TrimSpace(u.FirstName) == "" {
		errs.Add("first_name", MsgName)
	}
	if rules.RequirePhone && !phonePattern.MatchString(strings.TrimSpace(u.Phone)) {
		errs.Add("phone", MsgPhone)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
