package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "rollcall",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("rollcall"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		exp  time.Time
		nbf  time.Time
		want error
	}{
		{"valid", now.Add(time.Minute), now.Add(-time.Minute), nil},
		{"expired", now.Add(-time.Second), now.Add(-time.Minute), jwtx.ErrExpired},
		{"expires exactly now", now, now.Add(-time.Minute), jwtx.ErrExpired},
		{"not yet valid", now.Add(time.Hour), now.Add(time.Minute), jwtx.ErrNotYetValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &jwtx.Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(tt.exp),
					NotBefore: jwt.NewNumericDate(tt.nbf),
				},
			}
			err := c.ValidateExpiry(now)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	p := jwtx.Principal{
		Sub:            "u1",
		Email:          "a@x.com",
		Name:           "A",
		IsAdmin:        true,
		OrganisationID: "o1",
	}

	c := jwtx.NewAccessClaims(p, "rollcall", time.Minute, now)
	require.Equal(t, jwtx.TypeAccess, c.Type)
	require.Equal(t, "u1", c.Subject)
	require.Equal(t, "rollcall", c.Issuer)
	require.NotEmpty(t, c.ID)
	require.Equal(t, p, c.Principal())

	r := jwtx.NewRefreshClaims("u1", "rollcall", time.Hour, now)
	require.Equal(t, jwtx.TypeRefresh, r.Type)
	require.NotEqual(t, c.ID, r.ID)
	require.Empty(t, r.Email)
}
