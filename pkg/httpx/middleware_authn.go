package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// AccessTokenCookie is consulted when no Authorization header is sent.
const AccessTokenCookie = "access_token"

var (
	ErrMissingToken      = errors.New("missing authorization token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header")
)

// TokenValidator turns a raw access token into the caller identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (Identity, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AccessGuard requires a valid access token, taken from the Authorization
// header or the access_token cookie, and attaches the caller Identity to
// the request context. onError receives ErrMissingToken,
// ErrInvalidAuthHeader or the validator's error; nil writes a plain 401.
func AccessGuard(v TokenValidator, onError ErrorHandler) Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}

			id, err := v.ValidateToken(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("access token rejected", "err", err)
				onError(w, r, err)
				return
			}

			ctx = WithIdentity(ctx, id)
			ctx = slogx.With(ctx, "user_id", id.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the access token from the request. A present
// Authorization header must be exactly "Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if !ok || scheme != "Bearer" || token == "" || strings.ContainsAny(token, " \t") {
			return "", ErrInvalidAuthHeader
		}
		return token, nil
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", ErrMissingToken
}
