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

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oidcgate/internal/gate/authn"
	httpapi "github.com/aussiebroadwan/oidcgate/internal/gate/http"
	"github.com/aussiebroadwan/oidcgate/internal/gate/metrics"
	"github.com/aussiebroadwan/oidcgate/internal/gate/registry"
	"github.com/aussiebroadwan/oidcgate/internal/gate/service"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/redis"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store/drivers/sqlite"
	"github.com/aussiebroadwan/oidcgate/pkg/cryptox"
	"github.com/aussiebroadwan/oidcgate/pkg/sessioncookie"
	"github.com/aussiebroadwan/oidcgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns the gate's dependencies and lifecycle.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	redis    *goredis.Client // nil unless GATE_REDIS_URL is set
	sessions store.Sessions
	cookies  *sessioncookie.Codec
	metrics  *metrics.Metrics

	// Services
	sessionState        *store.SessionState
	authenticator       *authn.SessionAuthenticator
	loginService        *authn.LoginService
	interceptor         *service.Interceptor
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "oidcgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	secret, err := loadCookieSecret(app.cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to load cookie secret: %w", err)
	}
	app.cookies = &sessioncookie.Codec{
		Name:     app.cfg.CookieName,
		Secret:   secret,
		Issuer:   "oidcgate",
		TTL:      app.cfg.SessionTTL,
		Secure:   app.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	app.metrics = metrics.New(nil)
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gate starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"authorize_path", app.cfg.AuthorizePath,
	)

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
			app.closeStores()
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

// Shutdown drains the server, stops housekeeping and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("gate stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens sqlite, applies migrations and seeds the registry.
func (app *Application) initDatabase(ctx context.Context) error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.logger.Info("database migrations applied successfully")

	if app.cfg.RegistryFile == "" {
		return nil
	}

	reg, err := registry.Load(app.cfg.RegistryFile)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Apply(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply registry: %w", err)
	}
	app.logger.Info("registry applied",
		"path", app.cfg.RegistryFile,
		"clients", len(reg.Clients),
		"users", len(reg.Users),
	)
	return nil
}

// initSessions picks redis when configured, sqlite otherwise.
func (app *Application) initSessions(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.sessions = app.db.Sessions()
		app.logger.Info("session backend selected", "backend", "sqlite")
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := redis.Open(dialCtx, app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.sessions = redis.NewSessions(client)
	app.logger.Info("session backend selected", "backend", "redis")
	return nil
}

// initServices initializes the interception and authentication services
func (app *Application) initServices() {
	app.sessionState = &store.SessionState{
		Sessions: app.sessions,
		TTL:      app.cfg.SessionTTL,
	}
	app.authenticator = &authn.SessionAuthenticator{
		Sessions: app.sessionState,
		Lifetime: app.cfg.IdpSessionLifetime,
	}
	app.loginService = &authn.LoginService{
		Users: app.db.Users(),
		Auth:  app.authenticator,
	}
	app.interceptor = &service.Interceptor{
		Prefix:   app.cfg.AuthorizePath,
		Builder:  &service.RequestBuilder{Clients: app.db.Clients()},
		Sessions: app.sessionState,
		Auth:     app.authenticator,
		Prompt:   &service.PromptEvaluator{},
		MaxAge:   &service.MaxAgeEvaluator{},
		Metrics:  app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.LoginPath,
		app.db,
		app.sessions,
		app.cookies,
		app.logger,
	)

	router.Interceptor = app.interceptor
	router.SessionState = app.sessionState
	router.Authenticator = app.authenticator
	router.LoginService = app.loginService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
