package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shortspan/shortspan/internal/alias"
	"github.com/shortspan/shortspan/internal/analytics"
	"github.com/shortspan/shortspan/internal/cache"
	"github.com/shortspan/shortspan/internal/click"
	"github.com/shortspan/shortspan/internal/config"
	"github.com/shortspan/shortspan/internal/geo"
	"github.com/shortspan/shortspan/internal/handler"
	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/middleware"
	"github.com/shortspan/shortspan/internal/redirect"
	"github.com/shortspan/shortspan/internal/store"
	"github.com/shortspan/shortspan/internal/store/file"
	"github.com/shortspan/shortspan/internal/store/sqlite"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// ============================================================
	// INITIALIZE LOGGER
	// ============================================================
	log := logger.New(cfg.Log)

	log.Info("starting shortspan",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	// ============================================================
	// INITIALIZE STORE
	// ============================================================
	var (
		st      store.Store
		closeFn func() error
	)
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := sqlite.New(cfg.Store.Path, log)
		if err != nil {
			log.Error("failed to open sqlite store", "path", cfg.Store.Path, "error", err.Error())
			os.Exit(1)
		}
		st, closeFn = s, s.Close
	default:
		s, err := file.New(cfg.Store.Path, log)
		if err != nil {
			log.Error("failed to open file store", "path", cfg.Store.Path, "error", err.Error())
			os.Exit(1)
		}
		st = s
	}
	log.Info("store ready", "backend", cfg.Store.Backend, "path", cfg.Store.Path)

	// ============================================================
	// INITIALIZE OPTIONAL REDIS CACHE
	// ============================================================
	var aliasCache redirect.AliasCache
	if cfg.Cache.Addr != "" {
		c, err := cache.New(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			log.Error("failed to connect to Redis", "addr", cfg.Cache.Addr, "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.Error("failed to close Redis client", "error", err.Error())
			}
		}()
		aliasCache = c
		log.Info("redis cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
	}

	// ============================================================
	// INITIALIZE ENGINES
	// ============================================================
	aliases := alias.NewEngine(st, log)
	locator := geo.NewTiered(nil, cfg.Geo.DeviceTimeout, log)
	clicks := click.NewTracker(st, locator, log)
	an := analytics.NewEngine(st)
	resolver := redirect.NewResolver(aliases, aliasCache, log)

	h := handler.New(aliases, clicks, an, resolver, handler.Config{
		CountdownTicks: cfg.Redirect.CountdownTicks,
		TickInterval:   cfg.Redirect.TickInterval,
	}, log)
	router := h.Routes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	middlewares := []middleware.Middleware{
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logging(log),
	}
	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			middleware.RateLimiterConfig{
				Rate:     cfg.RateLimit.Rate,
				Burst:    cfg.RateLimit.Burst,
				Interval: cfg.RateLimit.Interval,
				Cleanup:  cfg.RateLimit.Cleanup,
			},
			log,
		)
		middlewares = append(middlewares, rateLimiter.Middleware())
		log.Info("rate limiter enabled",
			"rate", cfg.RateLimit.Rate,
			"burst", cfg.RateLimit.Burst,
		)
	}

	wrappedRouter := middleware.Chain(router, middlewares...)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST /api/shorten             - Create short URLs (batch)")
			fmt.Println("  GET  /api/urls                - List all URLs")
			fmt.Println("  GET  /api/analytics           - Global analytics")
			fmt.Println("  GET  /api/urls/{id}/analytics - Per-URL analytics")
			fmt.Println("  POST /api/cleanup             - Remove expired URLs")
			fmt.Println("  GET  /{code}                  - Redirect to original")
			fmt.Println("  GET  /health                  - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		if closeFn != nil {
			if err := closeFn(); err != nil {
				log.Error("failed to close store", "error", err.Error())
			}
		}

		log.Info("server stopped")
	}
}
