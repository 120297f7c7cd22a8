// Package app assembles the dashboard server: configuration, logging,
// telemetry, the data service and the HTTP router, plus lifecycle
// management with graceful shutdown.
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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"solarcli/internal/aggregation"
	"solarcli/internal/config"
	"solarcli/internal/dataset"
	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	custommw "solarcli/internal/middleware"
	"solarcli/internal/services"
	transport "solarcli/internal/transport/http"
)

// Application holds the assembled dashboard server.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	DataService   *services.DataService
	Server        *http.Server
}

// NewApplication loads configuration, initializes logging and telemetry,
// loads the combined dataset and builds the HTTP server. A missing combined
// file is not fatal: the server starts in a not-ready state and reports 503
// until the processor has produced it and the service is reloaded.
func NewApplication(configFile string) (*Application, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Logging.FilePath == "logs/app.log" {
		cfg.Logging.FilePath = cfg.Paths.LogFilePath("web.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}

	combined := app.loadCombined(context.Background())
	app.DataService = services.NewDataService(logger, combined,
		cfg.Cleaning.Metrics, cfg.Cleaning.PrimaryMetric)

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.setupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// loadCombined loads the combined dataset if the processor has produced it.
func (a *Application) loadCombined(ctx context.Context) *dataset.Frame {
	path := a.Config.Paths.CombinedFilePath()
	loader := dataset.NewLoader(a.Logger,
		a.Config.Cleaning.TimestampColumn, a.Config.Cleaning.TimestampLayout)

	combined, err := loader.Load(ctx, path)
	if err != nil {
		a.Logger.WarnContext(ctx, "combined dataset unavailable, starting not ready",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}

	if !combined.HasColumn(aggregation.SiteColumn) {
		a.Logger.WarnContext(ctx, "combined dataset has no site column, starting not ready",
			slog.String("path", path))
		return nil
	}

	return combined
}

// setupRouter builds the middleware chain and mounts the API routes.
func (a *Application) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))

	if a.Config.Server.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(
			a.Config.Server.RateLimit.RPS,
			a.Config.Server.RateLimit.Burst,
			a.Logger)
		r.Use(limiter.Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger)
	dataHandler := transport.NewDataHandler(a.DataService, a.Logger, errorHandler)
	healthHandler := transport.NewHealthHandler(a.DataService, infrastructure.ServiceVersion)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/data", dataHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
	})

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	return r
}

// Run starts the HTTP server and blocks until an interrupt signal or a
// listener error, then shuts down gracefully.
func (a *Application) Run() error {
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "dashboard server listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		a.Logger.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.WarnContext(ctx, "telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "server stopped")
	return nil
}
