package totp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecretIsUnique(t *testing.T) {
	first, err := GenerateSecret("user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GenerateSecret("user@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestCurrentCodeVerifies(t *testing.T) {
	secret, err := GenerateSecret("user@example.com")
	require.NoError(t, err)

	code, err := CurrentCode(secret)
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.True(t, Verify(secret, code))
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	secret, err := GenerateSecret("user@example.com")
	require.NoError(t, err)

	require.False(t, Verify(secret, "000000"))
	require.False(t, Verify(secret, ""))
	require.False(t, Verify("", "123456"))
}
