package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// SecretSize is the entropy of a generated secret in bytes.
const SecretSize = 32

// NewSecret returns a random base64url secret and its Fingerprint. Only the
// fingerprint should be stored.
func NewSecret() (secret, fingerprint string, err error) {
	buf := make([]byte, SecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("cryptox: read random: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	return secret, Fingerprint(secret), nil
}

// Fingerprint is the base64url SHA-256 of s. Secrets are high entropy, so an
// unsalted hash is enough for lookup by value.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
