package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default credential lifetimes.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Principal is the identity encoded into an access token.
type Principal struct {
	Sub            string
	Email          string
	Name           string
	IsAdmin        bool
	IsSuperUser    bool
	OrganisationID string
}

// Claims are the claims of both access and refresh tokens. Refresh tokens
// only carry the registered claims and Type.
type Claims struct {
	jwt.RegisteredClaims

	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	IsAdmin        bool   `json:"isAdmin,omitempty"`
	IsSuperUser    bool   `json:"isSuperUser,omitempty"`
	OrganisationID string `json:"organisationId,omitempty"`

	// Type is "access" or "refresh".
	Type string `json:"typ"`
}

// Principal returns the identity view of the claims.
func (c Claims) Principal() Principal {
	return Principal{
		Sub:            c.Subject,
		Email:          c.Email,
		Name:           c.Name,
		IsAdmin:        c.IsAdmin,
		IsSuperUser:    c.IsSuperUser,
		OrganisationID: c.OrganisationID,
	}
}

// NewAccessClaims builds access claims for p.
func NewAccessClaims(p Principal, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(p.Sub, issuer, ttl, now),
		Email:            p.Email,
		Name:             p.Name,
		IsAdmin:          p.IsAdmin,
		IsSuperUser:      p.IsSuperUser,
		OrganisationID:   p.OrganisationID,
		Type:             TypeAccess,
	}
}

// NewRefreshClaims builds refresh claims for sub with a fresh jti.
func NewRefreshClaims(sub, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(sub, issuer, ttl, now),
		Type:             TypeRefresh,
	}
}

func registered(sub, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a random UUIDv4 for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
