package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"

	_ "github.com/aussiebroadwan/rollcall/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store    store.Store
	sessions store.Sessions

	AuthService         *service.AuthService
	InviteService       *service.InviteService
	UserService         *service.UserService
	OrganisationService *service.OrganisationService
	ActivityService     *service.ActivityService
	MessageService      *service.MessageService
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	sessions store.Sessions,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		sessions:     sessions,
		logger:       logger,
		metrics:      m,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInvites()
	r.registerUsers()
	r.registerOrganisations()
	r.registerActivity()
	r.registerMessages()
	r.registerSystem()

	r.Mux.Handle("GET /metrics", r.metrics.Handler())
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Rollcall Authentication Service API
//	@version		0.1.0
//	@description	Organisation accounts, sessions and member invitations.
//	@description
//	@description				Access and refresh tokens are JWTs signed with EdDSA (Ed25519) and can be verified using the JWKS endpoint.
//	@description				Refresh tokens are single use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/rollcall
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern, instrumented with the pattern as the
// route label.
func (r *Router) handle(pattern string, h http.Handler, mws ...httpx.Middleware) {
	r.Mux.Handle(pattern, r.metrics.Instrument(pattern, httpx.Chain(h, mws...)))
}

// authenticated returns the access guard followed by the capability check
// and a per-user rate limit.
func (r *Router) authenticated(c httpx.Capabilities, limit httpx.Limit) []httpx.Middleware {
	return []httpx.Middleware{
		httpx.AccessGuard(tokenValidator{r.AuthService}, guardError),
		httpx.RequireCapabilities(c),
		httpx.RateLimitByUser(limit),
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints - strict rate limit by IP (brute force prevention)
	r.handle("POST /v1/auth/account/create", http.HandlerFunc(h.HandleCreateAccount),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.handle("POST /v1/auth/login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.handle("POST /v1/auth/refresh", http.HandlerFunc(h.HandleRefresh),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
	r.handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)

	// Any authenticated user
	r.handle("POST /v1/auth/logout/all", http.HandlerFunc(h.HandleLogoutAll),
		r.authenticated(httpx.Capabilities{}, httpx.ModerateLimit)...,
	)
	r.handle("GET /v1/auth/me", http.HandlerFunc(h.HandleMe),
		r.authenticated(httpx.Capabilities{}, httpx.LenientLimit)...,
	)
	r.handle("POST /v1/auth/password/change", http.HandlerFunc(h.HandleChangePassword),
		r.authenticated(httpx.Capabilities{}, httpx.StrictLimit)...,
	)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{InviteService: r.InviteService}

	r.handle("POST /v1/invites/send", http.HandlerFunc(h.HandleSend),
		r.authenticated(httpx.AdminOrSuper, httpx.ModerateLimit)...,
	)
	r.handle("GET /v1/invites/pending", http.HandlerFunc(h.HandlePending),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
	r.handle("GET /v1/invites/accepted", http.HandlerFunc(h.HandleAccepted),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
	r.handle("PATCH /v1/invites/{id}/resend", http.HandlerFunc(h.HandleResend),
		r.authenticated(httpx.AdminOrSuper, httpx.ModerateLimit)...,
	)

	// Public: the token is the credential
	r.handle("GET /v1/invites/{token}", http.HandlerFunc(h.HandleGet),
		httpx.RateLimitByIP(httpx.ModerateLimit),
	)
	r.handle("POST /v1/invites/{token}/accept", http.HandlerFunc(h.HandleAccept),
		httpx.RateLimitByIP(httpx.StrictLimit),
	)
}

func (r *Router) registerUsers() {
	h := &UserHandler{UserService: r.UserService}

	r.handle("GET /v1/users/employees", http.HandlerFunc(h.HandleList),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
	r.handle("GET /v1/users/employees/total", http.HandlerFunc(h.HandleTotal),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
	r.handle("DELETE /v1/users/employees/{id}", http.HandlerFunc(h.HandleDelete),
		r.authenticated(httpx.SuperOnly, httpx.ModerateLimit)...,
	)
	r.handle("PATCH /v1/users/employees/{id}/role", http.HandlerFunc(h.HandleUpdateRole),
		r.authenticated(httpx.AdminOrSuper, httpx.ModerateLimit)...,
	)
}

func (r *Router) registerOrganisations() {
	h := &OrganisationHandler{OrganisationService: r.OrganisationService}

	r.handle("GET /v1/organisations/current", http.HandlerFunc(h.HandleCurrent),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
	r.handle("PATCH /v1/organisations/update", http.HandlerFunc(h.HandleUpdate),
		r.authenticated(httpx.SuperOnly, httpx.ModerateLimit)...,
	)
}

func (r *Router) registerMessages() {
	h := &MessageHandler{MessageService: r.MessageService}

	r.handle("POST /v1/messages/send", http.HandlerFunc(h.HandleSend),
		r.authenticated(httpx.AdminOrSuper, httpx.StrictLimit)...,
	)
}

func (r *Router) registerActivity() {
	h := &ActivityHandler{ActivityService: r.ActivityService}

	r.handle("GET /v1/activity/logs", http.HandlerFunc(h.HandleList),
		r.authenticated(httpx.AdminOrSuper, httpx.LenientLimit)...,
	)
}

func (r *Router) registerSystem() {
	r.handle("GET /.well-known/jwks.json", JWKSHandler(r.keys.KeySet),
		httpx.RateLimitByIP(httpx.PublicLimit),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.handle("GET /livez", LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
	r.handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.sessions, r.keys),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)
}

// tokenValidator adapts AuthService to httpx.TokenValidator.
type tokenValidator struct {
	auth *service.AuthService
}

func (v tokenValidator) ValidateToken(ctx context.Context, token string) (httpx.Identity, error) {
	id, err := v.auth.ValidateToken(ctx, token)
	if err != nil {
		return httpx.Identity{}, err
	}
	return httpx.Identity(id), nil
}
