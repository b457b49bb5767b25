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

	"github.com/iudanet/coinkeeper/internal/server/handlers"
	"github.com/iudanet/coinkeeper/internal/server/hub"
	"github.com/iudanet/coinkeeper/internal/server/middleware"
	"github.com/iudanet/coinkeeper/internal/server/storage/sqlite"
	syncsvc "github.com/iudanet/coinkeeper/internal/server/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "coinkeeper.db", "Path to SQLite database")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "Access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", 720*time.Hour, "Refresh token lifetime")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger, *addr, *dbPath, *accessTTL, *refreshTTL); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath string, accessTTL, refreshTTL time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jwtSecret := os.Getenv("COINKEEPER_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("COINKEEPER_JWT_SECRET environment variable is required")
	}
	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(jwtSecret),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	authHandler := handlers.NewAuthHandler(logger, store, store, jwtConfig)
	healthHandler := handlers.NewHealthHandler(logger)

	wsHub := hub.New(logger)
	syncService := syncsvc.NewService(store, store, store, logger)
	syncHandler := handlers.NewSyncHandler(logger, wsHub, syncService)

	authMW := middleware.AuthMiddleware(logger, jwtConfig)
	authRate := middleware.RateLimitMiddleware(30, time.Minute, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/auth/register", authRate(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", authRate(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/auth/refresh", authRate(http.HandlerFunc(authHandler.Refresh)))
	mux.Handle("POST /api/v1/auth/logout", http.HandlerFunc(authHandler.Logout))
	mux.Handle("GET /api/v1/sync/ws", authMW(http.HandlerFunc(syncHandler.HandleWS)))
	mux.Handle("GET /api/v1/health", http.HandlerFunc(healthHandler.Health))

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Expired refresh tokens are swept periodically.
	go sweepExpiredTokens(ctx, logger, store)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", Version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func sweepExpiredTokens(ctx context.Context, logger *slog.Logger, store *sqlite.Storage) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := store.DeleteExpiredTokens(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("failed to sweep expired tokens", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Info("expired refresh tokens removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func printVersion() {
	fmt.Printf("CoinKeeper Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
