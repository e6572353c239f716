// Package app wires the configured planner into an HTTP server.
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

	"github.com/alex-user-go/tripplan/internal/config"
	"github.com/alex-user-go/tripplan/internal/handler"
	"github.com/alex-user-go/tripplan/internal/middleware"
	"github.com/alex-user-go/tripplan/internal/obs"
	"github.com/alex-user-go/tripplan/internal/planner"
	"github.com/alex-user-go/tripplan/internal/planner/cache"
	"github.com/alex-user-go/tripplan/internal/planner/ratelimit"
)

// App holds the long-lived components of the service.
type App struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *obs.Metrics
	orchestrator *planner.Orchestrator
	cache        *cache.Cache
	limiter      *ratelimit.Limiter
	server       *http.Server
}

// New builds every component described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	metrics := obs.NewMetrics(logger)

	sources, err := cfg.Sources()
	if err != nil {
		return nil, err
	}
	orchestrator := planner.New(sources, cfg.PlannerOptions(), metrics, logger)

	a := &App{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		orchestrator: orchestrator,
		cache:        newCache(cfg.Cache, logger),
	}
	if cfg.RateLimit.Enabled {
		a.limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("planner configured",
		"flight_providers", len(sources.Flights),
		"lodging_providers", len(sources.Lodging),
		"weather_providers", len(sources.Weather),
		"cache_backend", cfg.Cache.Backend,
		"rate_limit", cfg.RateLimit.Enabled,
	)
	return a, nil
}

func newCache(cfg config.CacheConfig, logger *slog.Logger) *cache.Cache {
	switch cfg.Backend {
	case config.CacheRedis:
		store := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		return cache.New(store, cfg.TTL, logger)
	case config.CacheNone:
		return cache.New(cache.Disabled{}, cfg.TTL, logger)
	default:
		return cache.NewMemory(cfg.TTL, logger)
	}
}

// Orchestrator returns the configured planner.
func (a *App) Orchestrator() *planner.Orchestrator {
	return a.orchestrator
}

// Handler returns the routed and wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	h := handler.New(a.orchestrator, a.cache, a.limiter, a.metrics, a.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plan", h.PlanHandler)
	mux.HandleFunc("GET /healthz", obs.HealthHandler(a.logger))
	mux.HandleFunc("GET /metrics", a.metrics.MetricsHandler())

	return middleware.Chain(mux, middleware.Logging(a.logger), middleware.Recover(a.logger))
}

// Close releases the cache and the rate limiter.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Close()
	}
	return a.cache.Close()
}

// Serve listens until ctx is done, then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		a.logger.Info("starting server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", "error", err)
		return err
	}

	a.logger.Info("server stopped")
	return nil
}

// Run initializes the application from cfg and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	logger := obs.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close cache", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}
