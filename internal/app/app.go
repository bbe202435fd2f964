package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"marketpulse/internal/config"
	"marketpulse/internal/infrastructure"
	custommw "marketpulse/internal/middleware"
	"marketpulse/internal/services"
	"marketpulse/internal/storage"
	"marketpulse/internal/storage/postgres"
	handlers "marketpulse/internal/transport/http"
)

// Version is the reported application version. Overridable at link time.
var Version = "dev"

// Application is the composed server: configuration, logging, telemetry,
// storage, services, and the HTTP stack.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Router        *chi.Mux
	Server        *http.Server

	pool        *postgres.Pool
	store       storage.SnapshotStore
	rateLimiter *custommw.KeyedLimiter
	analytics   *services.AnalyticsService
}

// NewApplication loads configuration and wires every component. A missing
// database DSN is not fatal: the analytics endpoints then serve the
// graceful-empty payloads until storage is configured.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeStorage(ctx); err != nil {
		return nil, err
	}
	app.analytics = services.NewAnalyticsService(app.store, cfg.Analytics, logger)

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeStorage connects the Postgres pool when a DSN is configured.
// Connection failure is downgraded to a warning so the server still comes
// up and serves empty analytics.
func (a *Application) initializeStorage(ctx context.Context) error {
	dsn := a.Config.Database.DSN
	if dsn == "" {
		a.Logger.Warn("no database DSN configured, analytics will serve empty payloads")
		return nil
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		a.Logger.Warn("database connection failed, analytics will serve empty payloads",
			slog.String("error", err.Error()))
		return nil
	}

	a.pool = pool
	a.store = postgres.NewSnapshotStore(pool)
	a.Logger.Info("snapshot store connected")
	return nil
}

// setupRouter assembles the middleware chain and mounts every route.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StripSlashes)

	otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("telemetry middleware unavailable", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		a.rateLimiter = custommw.NewKeyedLimiter(
			a.Config.Security.RateLimit.Requests,
			a.Config.Security.RateLimit.Window,
			a.Logger,
		)
		r.Use(a.rateLimiter.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.pinger(), Version, a.Logger)
		healthHandler.RegisterRoutes(r)

		analyticsHandler := handlers.NewAnalyticsHandler(a.analytics, a.Logger)
		analyticsHandler.RegisterRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// pinger exposes the pool as the health handler's readiness dependency.
// A typed nil *Pool must not leak into the interface.
func (a *Application) pinger() handlers.Pinger {
	if a.pool == nil {
		return nil
	}
	return a.pool
}

// createServer builds the HTTP server around the router.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves until the process receives SIGINT or SIGTERM, then shuts
// down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errChan:
		a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
		return a.shutdownWith(ctx, err)
	}

	return a.shutdownWith(ctx, nil)
}

// shutdownWith stops every component within the configured timeout and
// returns cause unless shutdown itself fails first.
func (a *Application) shutdownWith(ctx context.Context, cause error) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "server shutdown error", slog.String("error", err.Error()))
		if cause == nil {
			cause = err
		}
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return cause
}
