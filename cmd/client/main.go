package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/iudanet/coinkeeper/internal/client/api"
	"github.com/iudanet/coinkeeper/internal/client/auth"
	"github.com/iudanet/coinkeeper/internal/client/cli"
	"github.com/iudanet/coinkeeper/internal/client/iocli"
	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/client/storage/boltdb"
	syncengine "github.com/iudanet/coinkeeper/internal/client/sync"
	"github.com/iudanet/coinkeeper/internal/client/transport"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "coinkeeper-client.db", "Path to local database")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.New(stdio, nil, nil, nil).PrintUsage()
		os.Exit(1)
	}

	if err := run(stdio, *serverURL, *dbPath, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(stdio iocli.IO, serverURL, dbPath, command string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	store, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	deviceID, err := resolveDeviceID(ctx, store)
	if err != nil {
		return err
	}

	apiClient := api.NewClient(serverURL)
	authService := auth.NewService(apiClient, store, logger, auth.WithDeviceID(deviceID))

	tp := transport.NewWSTransport(wsEndpoint(serverURL), authService.Token)
	defer func() {
		_ = tp.Close()
	}()

	engine, err := syncengine.NewEngine(ctx, deviceID, tp, store, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sync engine: %w", err)
	}

	engineCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := engine.Run(engineCtx); err != nil {
			logger.Error("sync engine stopped", "error", err)
		}
	}()

	cmdErr := cli.New(stdio, authService, engine, store).Run(ctx, command, args)

	cancel()
	<-engineDone

	return cmdErr
}

// resolveDeviceID returns the durable identity of this installation. The
// engine state is authoritative; a stored session comes next; a fresh
// database gets a new identity that both will then share.
func resolveDeviceID(ctx context.Context, store *boltdb.Storage) (string, error) {
	state, err := store.GetState(ctx)
	switch {
	case err == nil:
		return state.DeviceID, nil
	case !errors.Is(err, storage.ErrStateNotFound):
		return "", fmt.Errorf("failed to read engine state: %w", err)
	}

	session, err := store.GetAuth(ctx)
	switch {
	case err == nil && session.DeviceID != "":
		return session.DeviceID, nil
	case err != nil && !errors.Is(err, storage.ErrAuthNotFound):
		return "", fmt.Errorf("failed to read stored session: %w", err)
	}

	return uuid.New().String(), nil
}

// wsEndpoint derives the sync endpoint from the HTTP server URL.
func wsEndpoint(serverURL string) string {
	endpoint := serverURL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return strings.TrimSuffix(endpoint, "/") + "/api/v1/sync/ws"
}

func printVersion() {
	fmt.Printf("CoinKeeper Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
