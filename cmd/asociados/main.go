// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Javier-Pedernera/asociados-go/internal/apiclient"
	"github.com/Javier-Pedernera/asociados-go/internal/cache"
	"github.com/Javier-Pedernera/asociados-go/internal/config"
	"github.com/Javier-Pedernera/asociados-go/internal/gateway"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/logging"
	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/scheduler"
	"github.com/Javier-Pedernera/asociados-go/internal/session"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "asociados - associates app gateway\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_API_BASE_URL      Platform API root (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_SESSION_SECRET    Session key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_ALLOWED_ORIGINS   Comma-separated browser origins\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ASOC_REDIS_URL         Redis URL for store snapshots (optional)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.GetSupportedLanguages())

	// Cache backend for store snapshots and the catalog
	cacheConfig := cache.Config{
		Type:            cache.TypeMemory,
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}
	if cfg.UseRedisCache() {
		cacheConfig.Type = cache.TypeRedis
	}
	backend, err := cache.New(cacheConfig)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "backend", cacheConfig.Type, "url", cache.SanitizeRedisURL(cfg.RedisURL))

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		UserAgent: "asociados/" + appVersion,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	catalog := store.NewCatalog(api, cache.NewTypedCache[store.CatalogData](backend, "catalog:", ttl), logger)
	ctx := context.Background()
	if err := catalog.Warm(ctx); err != nil {
		// The scheduler retries; screens work with an empty catalog meanwhile.
		slog.Warn("failed to warm catalog", "error", err)
	}

	sessionManager := session.New(session.Options{
		Lifetime:    cfg.SessionLifetime,
		IdleTimeout: cfg.SessionIdleTimeout,
		IsDev:       cfg.IsDevelopment(),
	})
	loginProtection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{Logger: logger})

	sessions := gateway.NewSessions(gateway.SessionConfig{
		API:          api,
		Catalog:      catalog,
		Snapshots:    cache.NewTypedCache[store.State](backend, "store:", cfg.SessionLifetime),
		Compressor:   media.NewCompressor(media.Options{MaxEdge: cfg.ImageMaxEdge, Quality: cfg.ImageQuality}),
		ImageBaseURL: cfg.ImageBase(),
		Logger:       logger,
	})

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.CatalogRefreshJob(catalog, cfg.CatalogRefreshSchedule)); err != nil {
		return fmt.Errorf("scheduling catalog refresh: %w", err)
	}
	if err := sched.Add(scheduler.SessionSweepJob(cfg.SessionSweepSchedule,
		func() int { return sessions.Sweep(cfg.SessionIdleTimeout) },
		loginProtection.Sweep,
	)); err != nil {
		return fmt.Errorf("scheduling session sweep: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	cacheStats, _ := backend.(cache.StatsProvider)

	gw := gateway.New(gateway.Options{
		Sessions:        sessions,
		SessionManager:  sessionManager,
		LoginProtection: loginProtection,
		CSRFKey:         []byte(cfg.SessionSecret),
		AllowedOrigins:  cfg.AllowedOrigins,
		IsDev:           cfg.IsDevelopment(),
		CacheStats:      cacheStats,
		Version:         versionInfo,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           gw.Handler(),
		ReadTimeout:       30 * time.Second, // Image uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	srv.RegisterOnShutdown(gw.CloseStreams)

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
