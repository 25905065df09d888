package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{}, 50)
	for range 50 {
		tok, err := GenerateToken(TokenSize256)
		require.NoError(t, err)
		require.Len(t, tok, 43)
		require.NotContains(t, seen, tok)
		seen[tok] = struct{}{}
	}

	_, err := GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("session-a")
	require.Equal(t, a, FingerprintToken("session-a"))
	require.NotEqual(t, a, FingerprintToken("session-b"))
	require.Len(t, a, 43)
}
