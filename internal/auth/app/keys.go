package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// InitAuthKeys loads the Ed25519 signing key and builds the credential
// signer on top of it.
//
// With AUTH_SIGNING_KEY_FILE set the key is read from that file, or generated
// and written there on first start, so tokens survive restarts. Without it the
// key lives only in memory.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, *jwtx.CredentialSigner, error) {
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		KeyFile: cfg.SigningKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}

	if cfg.SigningKeyFile == "" {
		logger.Warn("signing key is ephemeral, issued tokens will not survive a restart")
	} else {
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile, "issuer", cfg.Issuer)
	}

	creds := jwtx.NewCredentialSigner(km, jwtx.CredentialOptions{
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	return km, creds, nil
}
