package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	httpapi "github.com/aussiebroadwan/rollcall/internal/auth/http"
	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the auth service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       *sqlite.Store
	sessions *redis.Sessions
	keys     *jwtx.KeyManager
	creds    *jwtx.CredentialSigner
	hasher   *cryptox.Hasher
	mailer   mail.Sender
	metrics  *metrics.Metrics

	authService         *service.AuthService
	inviteService       *service.InviteService
	userService         *service.UserService
	organisationService *service.OrganisationService
	activityService     *service.ActivityService
	messageService      *service.MessageService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. Resources
// opened before a failure are released.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "rollcall-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	pepper, err := cryptox.LoadOrGeneratePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load password pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	app.keys, app.creds, err = InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupTimeout)
	defer cancel()
	if err := app.initSessions(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initMailer(); err != nil {
		_ = app.sessions.Close()
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	var errs []error
	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}

	app.logger.Info("auth service stopped")
	return errors.Join(errs...)
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.db = db
	app.logger.Info("database migrations applied successfully", "path", app.cfg.DatabaseFile)
	return nil
}

// initSessions connects to Redis, retrying with exponential backoff until
// ctx expires. Redis commonly starts after the service in compose setups.
func (app *Application) initSessions(ctx context.Context) error {
	sessions := redis.NewSessions(redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	ping := func() (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return struct{}{}, sessions.Ping(pctx)
	}

	_, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(app.cfg.StartupTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			app.logger.Warn("redis not reachable, retrying",
				"addr", app.cfg.RedisAddr,
				"error", err,
				"retry_in", next,
			)
		}),
	)
	if err != nil {
		_ = sessions.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}

	app.sessions = sessions
	app.logger.Info("session store connected", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)
	return nil
}

func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, invitation mail will be logged and dropped")
		app.mailer = mail.LogSender{}
		return nil
	}

	sender, err := mail.NewSMTPSender(mail.SMTPOptions{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.MailFrom,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.mailer = sender
	app.logger.Info("smtp mailer configured", "host", app.cfg.SMTPHost, "port", app.cfg.SMTPPort)
	return nil
}

func (app *Application) initServices() {
	timeout := app.cfg.StoreTimeout

	app.activityService = &service.ActivityService{Store: app.db, StoreTimeout: timeout}

	app.authService = &service.AuthService{
		Store:        app.db,
		Sessions:     app.sessions,
		Credentials:  app.creds,
		Hasher:       app.hasher,
		Activity:     app.activityService,
		Metrics:      app.metrics,
		StoreTimeout: timeout,
	}
	app.inviteService = &service.InviteService{
		Store:        app.db,
		Hasher:       app.hasher,
		Mailer:       app.mailer,
		Activity:     app.activityService,
		Metrics:      app.metrics,
		FrontendURL:  app.cfg.FrontendURL,
		Expiry:       app.cfg.InviteExpiry(),
		StoreTimeout: timeout,
	}
	app.userService = &service.UserService{
		Store:        app.db,
		Sessions:     app.sessions,
		Activity:     app.activityService,
		Metrics:      app.metrics,
		StoreTimeout: timeout,
	}
	app.organisationService = &service.OrganisationService{
		Store:        app.db,
		Activity:     app.activityService,
		StoreTimeout: timeout,
	}
	app.messageService = &service.MessageService{Mailer: app.mailer, Activity: app.activityService}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.StoreTimeout = timeout
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		BuildVersion,
		app.db,
		app.sessions,
		app.logger,
		app.metrics,
	)

	router.AuthService = app.authService
	router.InviteService = app.inviteService
	router.UserService = app.userService
	router.OrganisationService = app.organisationService
	router.ActivityService = app.activityService
	router.MessageService = app.messageService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the routed HTTP handler, for serving the application
// without binding its configured port.
func (app *Application) Handler() http.Handler {
	return app.router
}
