package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
)

// AlgorithmEdDSA is the only signing algorithm issued by this service.
const AlgorithmEdDSA = "EdDSA"

// KeyManager wires a signing key, its KeySet and a verifier together.
type KeyManager struct {
	Signer   Signer
	Verifier Verifier
	KeySet   *KeySet
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Issuer is the issuer claim (iss) that will be validated in tokens.
	Issuer string

	// KeyFile is a PKCS8 PEM file holding the Ed25519 private key. When the
	// file does not exist a key is generated and written there. When empty
	// the key is ephemeral and every restart invalidates issued tokens.
	KeyFile string
}

// NewKeyManager loads or generates the signing key described by opts.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	pemKey, err := loadOrGenerateKey(opts.KeyFile)
	if err != nil {
		return nil, err
	}

	return NewKeyManagerFromPEM(opts.Issuer, pemKey)
}

// NewKeyManagerFromPEM builds a KeyManager around an existing PEM key. The
// key id is derived from the public key, so it is stable across restarts.
func NewKeyManagerFromPEM(issuer string, pemKey []byte) (*KeyManager, error) {
	// Parse once without a kid to derive one from the public key.
	probe, err := NewSignerEdDSA("", pemKey)
	if err != nil {
		return nil, err
	}

	signer, err := NewSignerEdDSA(keyID(probe), pemKey)
	if err != nil {
		return nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: failed to add signer to keyset: %w", err)
	}

	return &KeyManager{
		Signer:   signer,
		Verifier: NewVerifierEdDSA(keyset, issuer),
		KeySet:   keyset,
	}, nil
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km != nil && km.KeySet.IsReady()
}

func keyID(s *EdDSASigner) string {
	return "rollcall-" + cryptox.Fingerprint(string(s.pub))[:16]
}

func loadOrGenerateKey(file string) ([]byte, error) {
	if file == "" {
		return generateKey()
	}

	file = filepath.Clean(file)
	pemKey, err := os.ReadFile(file)
	if err == nil {
		return pemKey, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("jwtx: read signing key: %w", err)
	}

	pemKey, err = generateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, fmt.Errorf("jwtx: create key directory: %w", err)
	}
	if err := os.WriteFile(file, pemKey, 0600); err != nil {
		return nil, fmt.Errorf("jwtx: write signing key: %w", err)
	}
	return pemKey, nil
}

// generateKey returns a fresh Ed25519 key as PKCS8 PEM.
func generateKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate signing key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal signing key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
