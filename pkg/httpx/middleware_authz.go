package httpx

import "net/http"

// Capabilities is the set of flags a route requires.
type Capabilities struct {
	Admin bool
	Super bool
}

var (
	AdminOrSuper = Capabilities{Admin: true, Super: true}
	SuperOnly    = Capabilities{Super: true}
	AdminOnly    = Capabilities{Admin: true}
)

// Allow reports whether id satisfies required. Requiring both flags means
// either one is enough.
func Allow(required Capabilities, id Identity) bool {
	switch {
	case required.Admin && required.Super:
		return id.IsAdmin || id.IsSuperUser
	case required.Super:
		return id.IsSuperUser
	case required.Admin:
		return id.IsAdmin
	default:
		return true
	}
}

// RequireCapabilities rejects callers that do not satisfy c. It must run
// after AccessGuard.
func RequireCapabilities(c Capabilities) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", ErrMissingToken.Error())
				return
			}

			if !Allow(c, id) {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
