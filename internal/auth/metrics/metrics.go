// Package metrics holds the Prometheus collectors of the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rollcall"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authEvents      *prometheus.CounterVec
	inviteEvents    *prometheus.CounterVec
	sessionsRevoked prometheus.Counter
	invitesPurged   prometheus.Counter
}

// New registers the service collectors, plus the Go runtime and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Account, login and refresh attempts by outcome.",
		}, []string{"event", "outcome"}),
		inviteEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "events_total",
			Help:      "Invite sends, resends and acceptances by outcome.",
		}, []string{"event", "outcome"}),
		sessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Refresh sessions revoked by logout, rotation or account changes.",
		}),
		invitesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "purged_total",
			Help:      "Expired invites removed by housekeeping.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.authEvents,
		m.inviteEvents,
		m.sessionsRevoked,
		m.invitesPurged,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// AuthEvent counts an auth operation (create_account, login, refresh).
func (m *Metrics) AuthEvent(event string, err error) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome(err)).Inc()
}

// InviteEvent counts an invite operation (send, resend, accept).
func (m *Metrics) InviteEvent(event string, err error) {
	if m == nil {
		return
	}
	m.inviteEvents.WithLabelValues(event, outcome(err)).Inc()
}

func (m *Metrics) SessionsRevoked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsRevoked.Add(float64(n))
}

func (m *Metrics) InvitesPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.invitesPurged.Add(float64(n))
}

// Instrument wraps h, recording status and latency under route. route must
// be the registered pattern, never the raw path, to bound label cardinality.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)

		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
