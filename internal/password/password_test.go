package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lettingworks/tenancy-admin/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := password.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := password.Hash("secret")
	require.NoError(t, err)
	second, err := password.Hash("secret")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not a hash", "$argon2id$v=19$m=65536,t=3,p=2$salt"} {
		_, err := password.Verify("secret", hash)
		require.Error(t, err, "hash %q", hash)
	}
}

func TestGenerateSecret(t *testing.T) {
	first, err := password.GenerateSecret()
	require.NoError(t, err)
	require.Len(t, first, 32)

	second, err := password.GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
