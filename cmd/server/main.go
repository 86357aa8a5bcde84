package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"videotube/internal/auth"
	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/engine"
	"videotube/internal/handlers"
	"videotube/internal/logger"
	"videotube/internal/media"
	"videotube/internal/services"
	"videotube/internal/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (database.DBAdapter, error) {
	switch cfg.Type {
	case "memory":
		log.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryDB(), nil
	default:
		return database.NewMongoDB(ctx, cfg.URI, cfg.Name)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	mediaStore, err := media.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	metrics := utils.NewMetricsCollector()

	// Initialize actor system
	system := actor.NewActorSystem()
	mediaEngine := engine.NewEngine(system, mediaStore, metrics, log)
	defer mediaEngine.Shutdown()

	tokens := auth.NewTokenService(cfg.Auth)
	creds := auth.NewCredentialStore(store, cfg.Auth.BcryptCost)
	sessions := services.NewSessionService(store, creds, tokens, mediaStore, mediaEngine, log)
	profiles := services.NewProfileService(store, log)

	server := handlers.NewServer(cfg, store, sessions, profiles, tokens, metrics, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", "addr", httpServer.Addr, "db", cfg.Database.Type)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
