// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

// Command api is the entry point for the LovePing presence server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Warm the pairing directory from storage.
//  7. Wire the presence engine, Spotify manager, and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FaelSemW/LovePingServer/internal/api"
	"github.com/FaelSemW/LovePingServer/internal/auth"
	"github.com/FaelSemW/LovePingServer/internal/gateway"
	"github.com/FaelSemW/LovePingServer/internal/pairing"
	"github.com/FaelSemW/LovePingServer/internal/platform/config"
	"github.com/FaelSemW/LovePingServer/internal/platform/constants"
	"github.com/FaelSemW/LovePingServer/internal/platform/migration"
	pgstore "github.com/FaelSemW/LovePingServer/internal/platform/postgres"
	redisstore "github.com/FaelSemW/LovePingServer/internal/platform/redis"
	"github.com/FaelSemW/LovePingServer/internal/platform/sec"
	"github.com/FaelSemW/LovePingServer/internal/presence"
	"github.com/FaelSemW/LovePingServer/internal/spotify"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[LovePing] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Session Credentials ────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer, cfg.SessionTTL)
	must(log, err, "initialize token service")

	// ── 7. Accounts & Pairing ─────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	authService := auth.NewService(userRepository, tokenService)
	authHandler := auth.NewHandler(authService)

	pairingRepository := pairing.NewPostgresRepository(pool)
	pairingService, err := pairing.NewService(startupCtx, pairingRepository)
	must(log, err, "warm pairing directory")
	pairingHandler := pairing.NewHandler(pairingService, userRepository)

	// ── 8. Presence Engine ────────────────────────────────────────────────
	registry := presence.NewRegistry()
	snapshotStore := presence.NewRedisSnapshotStore(rdb)
	broadcaster := presence.NewBroadcaster(snapshotStore, registry, pairingService, log)

	// ── 9. Spotify Integration ────────────────────────────────────────────
	spotifyClient := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
	tokenRepository := spotify.NewPostgresTokenRepository(pool)
	manager := spotify.NewManager(spotifyClient, tokenRepository, log)
	poller := spotify.NewPoller(manager, spotifyClient, broadcaster, registry, cfg.NowPlayingInterval, log)
	defer poller.StopAll()

	stateRepository := spotify.NewRedisStateRepository(rdb)
	spotifyHandler := spotify.NewHandler(spotifyClient, manager, stateRepository, poller)

	// ── 10. Websocket Gateway ─────────────────────────────────────────────
	presenceGateway := gateway.NewGateway(tokenService, registry, broadcaster, poller,
		cfg.ExtraOriginList(), cfg.IsDevelopment(), log)

	// ── 11. Health Handlers ───────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 12. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Pairing:   pairingHandler,
		Spotify:   spotifyHandler,
		Gateway:   presenceGateway,
	}

	server := api.NewServer(context.Background(), cfg, log, tokenService, handlers)

	// ── 13. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
