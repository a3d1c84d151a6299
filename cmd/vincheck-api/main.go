// Package main is the entry point for the vincheck-api server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jmylchreest/vincheck-api/internal/config"
	"github.com/jmylchreest/vincheck-api/internal/http/handlers"
	"github.com/jmylchreest/vincheck-api/internal/http/mw"
	"github.com/jmylchreest/vincheck-api/internal/http/routes"
	"github.com/jmylchreest/vincheck-api/internal/logging"
	"github.com/jmylchreest/vincheck-api/internal/service"
	"github.com/jmylchreest/vincheck-api/internal/shutdown"
	"github.com/jmylchreest/vincheck-api/internal/version"
)

// Operations that fetch upstream pages or call a generation backend.
var (
	workPaths     = []string{"/check_vin", "/analyze", "/scrape_and_analyze"}
	analysisPaths = []string{"/analyze", "/scrape_and_analyze"}
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting vincheck-api", v.LogAttrs()...)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := service.NewServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	if cfg.StorageEnabled {
		logger.Info("S3 catalog loader enabled",
			"bucket", cfg.ConfigBucket,
			"key", cfg.ConfigKey,
			"cache_ttl", cfg.CatalogTTL,
		)
	}

	idle := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout:      cfg.IdleTimeout,
		ExcludePaths: []string{"/healthz", "/readyz", "/api/v1/health"},
		Logger:       logger,
	})

	router := chi.NewRouter()
	router.Use(mw.RequestID())
	router.Use(middleware.RealIP)
	router.Use(idle.Middleware)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(mw.BuildInfo(v))
	router.Use(mw.Cache(mw.DefaultCacheConfig()))
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:          cfg.RequestTimeout,
		Extended:         cfg.AnalysisTimeout,
		ExtendedPatterns: analysisPaths,
		SkipPatterns:     []string{"/static/"},
	}))
	router.Use(mw.ExtendWriteDeadline(analysisPaths, cfg.AnalysisTimeout+30*time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", mw.APIVersionHeader, mw.APICommitHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Listing text can be long but never approaches this
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	router.Use(mw.RateLimitByIP(mw.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		PathPrefixes:      workPaths,
		LimitHandler:      handlers.RateLimited,
	}))
	router.Use(mw.Throttle(mw.ThrottleConfig{
		Limit:          100,
		BacklogTimeout: 5 * time.Second,
		LimitHandler:   handlers.RateLimited,
	}))

	api := humachi.New(router, routes.NewHumaConfig(cfg.BaseURL))
	routes.Register(api, routes.NewHandlers(
		handlers.NewHealthHandler(services),
		handlers.NewLookupHandler(services.Lookup, logger),
		handlers.NewAnalysisHandler(services.Analysis, logger),
		handlers.NewBackendsHandler(services.Selector, services.Catalog),
	))

	if routes.MountStatic(router, cfg.StaticDir) {
		logger.Info("serving static frontend", "dir", cfg.StaticDir)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idle.Start()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			logger.Info("shutting down server", "signal", sig.String())
		case <-idle.ShutdownChan():
			logger.Info("shutting down idle server")
		}

		idle.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server",
		"port", cfg.Port,
		"base_url", cfg.BaseURL,
		"analysis_enabled", services.AnalysisEnabled(),
		"search_fallback", services.SearchFallbackEnabled(),
		"lookup_strategies", services.LookupStrategies(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
