package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.AuthEvent("login", nil)
	m.InviteEvent("send", errors.New("x"))
	m.SessionsRevoked(3)
	m.InvitesPurged(2)

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Instrument("/x", h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	t.Parallel()
	m := New()

	m.AuthEvent("login", nil)
	m.AuthEvent("login", nil)
	m.AuthEvent("login", errors.New("bad password"))
	m.InviteEvent("accept", nil)
	m.SessionsRevoked(4)

	body := scrape(t, m)
	require.Contains(t, body, `rollcall_auth_events_total{event="login",outcome="success"} 2`)
	require.Contains(t, body, `rollcall_auth_events_total{event="login",outcome="failure"} 1`)
	require.Contains(t, body, `rollcall_invite_events_total{event="accept",outcome="success"} 1`)
	require.Contains(t, body, `rollcall_auth_sessions_revoked_total 4`)
	require.Contains(t, body, `rollcall_invite_purged_total 0`)
}

func TestInstrument(t *testing.T) {
	t.Parallel()
	m := New()

	h := m.Instrument("GET /v1/auth/me", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

	body := scrape(t, m)
	require.Contains(t, body, `rollcall_http_requests_total{code="401",route="GET /v1/auth/me"} 1`)
	require.Contains(t, body, `rollcall_http_request_duration_seconds_count{route="GET /v1/auth/me"} 1`)
}
