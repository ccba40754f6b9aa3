package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/edgestack/internal/config"
	"github.com/tjfontaine/edgestack/internal/core/ports"
	"github.com/tjfontaine/edgestack/internal/storage"
	"github.com/tjfontaine/edgestack/internal/storage/sqldb"
	"github.com/tjfontaine/edgestack/internal/telemetry"
	"github.com/tjfontaine/edgestack/pkg/edgestack"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(config.DefaultSources()...)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg.Middleware.Logging)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("config", slog.String("warning", w))
	}

	shutdownTracer, err := telemetry.InitTracer(cfg, logger)
	if err != nil {
		logger.Error("tracing disabled", slog.String("error", err.Error()))
		shutdownTracer = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	app, err := edgestack.New(
		edgestack.WithConfig(cfg),
		edgestack.WithLogger(logger),
		edgestack.WithStoreProvider(provider),
		edgestack.WithTracerShutdown(shutdownTracer),
	)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newProvider opens the database once for the process runtime, or defers
// opening to each request in edge mode. Edge stores assume the schema has
// already been migrated.
func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Provider, error) {
	url := cfg.DatabaseURL()
	logger.Info("database configured",
		slog.String("runtime_mode", cfg.Runtime.Mode),
		slog.Bool("pooled", sqldb.IsPooledURL(url)))

	if cfg.Runtime.Mode == config.ModeEdge {
		return storage.NewPerRequestProvider(func(ctx context.Context) (ports.Store, error) {
			s, err := sqldb.Open(ctx, url, sqldb.Options{SkipSchema: true})
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil
	}

	store, err := sqldb.Open(ctx, url, sqldb.Options{})
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return storage.NewSingletonProvider(store), nil
}
