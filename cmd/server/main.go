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

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"live-docs/api"
	"live-docs/internal"
	"live-docs/observability"
	"live-docs/repositories"
	"live-docs/runtime"
	"live-docs/runtime/workers"
	"live-docs/services"
	"live-docs/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close, index
// flush) executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load() // best-effort, env vars win in production

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge search index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Core wiring: registry, save coordinator, hub
	documentRepository := repositories.NewDocumentRepository(db, blugeWriter, logger)
	userRepository := repositories.NewUserRepository(db)

	monitor := observability.NewMonitor(logger)
	registry := runtime.NewRegistry()
	saver := runtime.NewSaver(logger, documentRepository, monitor, config.SaveTimeout)
	hub := runtime.NewHub(logger, registry, saver, monitor)

	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	documentService := services.NewDocumentService(documentRepository)
	assistService := services.NewAssistService(config.AnthropicAPIKey, config.AssistModel)

	collab := ws.NewServer(logger, hub, config.ConnectionBufferSize)
	router := api.NewRouter(logger, authService, documentService, assistService, hub, collab)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP server & workers)
	errChan := make(chan error, 2)

	// 5. Background workers under supervision
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewAutosaveWorker(logger, saver, config.AutosaveInterval),
		workers.NewTelemetryWorker(logger, config.MetricInterval, hub.Stats),
	)
	go func() {
		logger.Info("Starting background workers...")
		supervisor.Run(ctx)
	}()

	// 6. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: router}

	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Let in-flight requests and pending saves finish before closing storage.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	supervisor.Stop()
	saver.Wait()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
