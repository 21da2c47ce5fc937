package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

const readyTimeout = 2 * time.Second

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the identity database, the session store and the signing key.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	sessions store.Sessions,
	keys *jwtx.KeyManager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{
			"database": "ok",
			"sessions": "ok",
			"signer":   "ok",
		}
		status, code := "ok", http.StatusOK
		fail := func(name, reason string) {
			checks[name] = "error: " + reason
			status, code = "degraded", http.StatusServiceUnavailable
		}

		if err := st.Ping(ctx); err != nil {
			fail("database", err.Error())
		}
		if err := sessions.Ping(ctx); err != nil {
			fail("sessions", err.Error())
		}
		if !keys.IsReady() {
			fail("signer", "no keys loaded")
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
