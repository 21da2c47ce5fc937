package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSecret(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 50)
	for range 50 {
		secret, fp, err := NewSecret()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(secret)
		require.NoError(t, err)
		require.Len(t, raw, SecretSize)

		require.Equal(t, Fingerprint(secret), fp)
		require.NotContains(t, seen, secret)
		seen[secret] = struct{}{}
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	require.Equal(t, Fingerprint("invite"), Fingerprint("invite"))
	require.NotEqual(t, Fingerprint("invite"), Fingerprint("invitE"))
	require.Len(t, Fingerprint("x"), 43)
	// sha256("abc")
	require.Equal(t, "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", Fingerprint("abc"))
}
