package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lettingworks/tenancy-admin/internal/auth"
)

func TestMintAndVerify(t *testing.T) {
	verifier := auth.NewVerifier("test-secret", "lettingworks", time.Hour)

	token, err := verifier.Mint(42, auth.StaffClaims{Email: "staff@lettingworks.dev", Name: "Agency Staff", Role: "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	std, staff, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", std.Subject)
	require.Equal(t, "lettingworks", std.Issuer)
	require.Equal(t, "staff@lettingworks.dev", staff.Email)
	require.Equal(t, "admin", staff.Role)
}

func TestMintAcceptsAnySecretLength(t *testing.T) {
	secrets := []string{
		"s",
		"short-secret",
		"a-configured-secret-well-over-thirty-two-bytes-long",
	}
	for _, secret := range secrets {
		verifier := auth.NewVerifier(secret, "lettingworks", time.Hour)

		token, err := verifier.Mint(7, auth.StaffClaims{Email: "staff@lettingworks.dev", Role: "admin"})
		require.NoError(t, err, "secret %q", secret)

		std, _, err := verifier.Verify(token)
		require.NoError(t, err, "secret %q", secret)
		require.Equal(t, "7", std.Subject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter := auth.NewVerifier("secret-a", "lettingworks", time.Hour)
	verifier := auth.NewVerifier("secret-b", "lettingworks", time.Hour)

	token, err := minter.Mint(1, auth.StaffClaims{Email: "staff@lettingworks.dev", Role: "admin"})
	require.NoError(t, err)

	_, _, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	minter := auth.NewVerifier("secret", "somewhere-else", time.Hour)
	verifier := auth.NewVerifier("secret", "lettingworks", time.Hour)

	token, err := minter.Mint(1, auth.StaffClaims{Email: "staff@lettingworks.dev", Role: "admin"})
	require.NoError(t, err)

	_, _, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier := auth.NewVerifier("secret", "lettingworks", -time.Hour)

	token, err := verifier.Mint(1, auth.StaffClaims{Email: "staff@lettingworks.dev", Role: "admin"})
	require.NoError(t, err)

	_, _, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := auth.NewVerifier("secret", "lettingworks", time.Hour)
	_, _, err := verifier.Verify("not.a.token")
	require.Error(t, err)
}
