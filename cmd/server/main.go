// Package main implements the entry point for the flashcard generation
// gateway. It loads configuration, sets up logging and tracing, wires the
// configured completion provider behind the failover orchestrator and serves
// the generation endpoint over HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/platform/logger"
	"github.com/phrazzld/scry-gateway/internal/platform/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("scry-gateway: %v", err)
	}
}

// run performs startup and blocks until ctx is cancelled or the server fails.
func run(ctx context.Context) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	// Key names only; values never reach the logs.
	keyNames := make([]string, len(cfg.LLM.APIKeys))
	for i, k := range cfg.LLM.APIKeys {
		keyNames[i] = k.Name
	}
	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"provider", cfg.LLM.Provider,
		"credentials", keyNames)

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry, l)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			l.Error("tracer shutdown failed", "error", err)
		}
	}()

	app, err := newApplication(cfg, l, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

// loadAppConfig loads the configuration from .env, config.yaml and the environment.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}
