package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lettingworks/tenancy-admin/internal/domain"
	"github.com/lettingworks/tenancy-admin/internal/validate"
)

func TestUserValidReturnsNil(t *testing.T) {
	user := domain.User{Email: "sam@example.com", FirstName: "Sam", Phone: "07123 456789"}
	errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
	require.Nil(t, errs)
}

func TestUserInvalidEmail(t *testing.T) {
	for _, email := range []string{"", "plainaddress", "missing@tld", "two@@example.com", "spaces in@example.com"} {
		user := domain.User{Email: email, FirstName: "Sam", Phone: "07123 456789"}
		errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
		require.Equal(t, []string{validate.MsgEmail}, errs["email"], "email %q", email)
	}
}

func TestUserMissingName(t *testing.T) {
	user := domain.User{Email: "sam@example.com", FirstName: "   ", Phone: "07123 456789"}
	errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
	require.Equal(t, []string{validate.MsgName}, errs["first_name"])
}

func TestUserInvalidPhone(t *testing.T) {
	for _, phone := range []string{"", "abc", "123", "phone number"} {
		user := domain.User{Email: "sam@example.com", FirstName: "Sam", Phone: phone}
		errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
		require.Equal(t, []string{validate.MsgPhone}, errs["phone"], "phone %q", phone)
	}
}

func TestUserAcceptsInternationalPhone(t *testing.T) {
	user := domain.User{Email: "sam@example.com", FirstName: "Sam", Phone: "+44 7123 456789"}
	errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
	require.Nil(t, errs)
}

func TestUserRelaxedRules(t *testing.T) {
	user := domain.User{Email: "sam@example.com"}
	errs := validate.User(user, validate.Rules{})
	require.Nil(t, errs)
}

func TestUserCollectsAllFailures(t *testing.T) {
	user := domain.User{Email: "bad", FirstName: "", Phone: ""}
	errs := validate.User(user, validate.Rules{RequirePhone: true, RequireName: true})
	require.Len(t, errs, 3)
}
