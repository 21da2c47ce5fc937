package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by CredentialSigner.Verify. No other errors escape it.
var (
	ErrInvalidCredential = errors.New("jwtx: invalid credential")
	ErrExpiredCredential = errors.New("jwtx: expired credential")
)

// CredentialSigner issues and checks the access and refresh tokens of the
// service.
type CredentialSigner struct {
	keys       *KeyManager
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CredentialOptions configures a CredentialSigner. Zero TTLs fall back to
// the package defaults.
type CredentialOptions struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewCredentialSigner(keys *KeyManager, opts CredentialOptions) *CredentialSigner {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTokenTTL
	}
	return &CredentialSigner{
		keys:       keys,
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is the lifetime of issued access tokens.
func (s *CredentialSigner) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of issued refresh tokens.
func (s *CredentialSigner) RefreshTTL() time.Duration { return s.refreshTTL }

// SignAccess issues an access token for p.
func (s *CredentialSigner) SignAccess(p Principal) (string, error) {
	claims := NewAccessClaims(p, s.issuer, s.accessTTL, s.now().UTC())
	token, err := s.keys.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign access token: %w", err)
	}
	return token, nil
}

// SignRefresh issues a refresh token for sub and returns it with its jti.
func (s *CredentialSigner) SignRefresh(sub string) (token, jti string, err error) {
	claims := NewRefreshClaims(sub, s.issuer, s.refreshTTL, s.now().UTC())
	token, err = s.keys.Signer.Sign(claims)
	if err != nil {
		return "", "", fmt.Errorf("jwtx: sign refresh token: %w", err)
	}
	return token, claims.ID, nil
}

// Verify checks signature, issuer and lifetime. It returns
// ErrExpiredCredential for a well-formed token past its expiry and
// ErrInvalidCredential for anything else.
func (s *CredentialSigner) Verify(token string) (Claims, error) {
	claims, err := s.keys.Verifier.Verify(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, ErrExpired):
		return Claims{}, ErrExpiredCredential
	default:
		return Claims{}, ErrInvalidCredential
	}
}

// Decode parses token without verifying it. It works on expired and
// foreign-signed tokens and reports false only when the token is not a
// JWT at all.
func (s *CredentialSigner) Decode(token string) (Claims, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}
