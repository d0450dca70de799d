package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
	"github.com/phrazzld/scry-gateway/internal/platform/anthropic"
	"github.com/phrazzld/scry-gateway/internal/platform/gemini"
	"github.com/phrazzld/scry-gateway/internal/platform/metrics"
	"github.com/phrazzld/scry-gateway/internal/platform/openai"
)

// application holds the shared dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	invoker generation.Invoker
	service *generation.Service
}

// newInvoker builds the provider adapter named by cfg.Provider.
func newInvoker(logger *slog.Logger, cfg config.LLMConfig, httpClient *http.Client) (generation.Invoker, error) {
	logger = logger.With("component", "llm_invoker", "provider", cfg.Provider)

	switch cfg.Provider {
	case gemini.ProviderName:
		return gemini.NewInvoker(logger, cfg, httpClient)
	case openai.ProviderName:
		return openai.NewInvoker(logger, cfg, httpClient)
	case anthropic.ProviderName:
		return anthropic.NewInvoker(logger, cfg, httpClient)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// credentialsFrom converts configured keys into orchestrator credentials.
func credentialsFrom(keys []config.APIKey) []generation.Credential {
	creds := make([]generation.Credential, len(keys))
	for i, k := range keys {
		creds[i] = generation.Credential{Name: k.Name, Secret: k.Value}
	}
	return creds
}

// policyFrom builds the retry policy from configuration.
func policyFrom(cfg config.LLMConfig) generation.Policy {
	return generation.Policy{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.BaseDelay,
		MaxDelay:       cfg.MaxDelay,
		Jitter:         cfg.Jitter,
		AttemptTimeout: cfg.AttemptTimeout,
	}
}

// newApplication wires the generation stack. A nil invoker selects the
// provider named in cfg.LLM.
func newApplication(cfg *config.Config, logger *slog.Logger, invoker generation.Invoker) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	metrics.InitMetrics()

	var err error
	if invoker == nil {
		invoker, err = newInvoker(logger, cfg.LLM, &http.Client{Timeout: cfg.LLM.AttemptTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM invoker: %w", err)
		}
	}
	app.invoker = invoker

	orchestrator, err := generation.NewOrchestrator(invoker, policyFrom(cfg.LLM), logger.With("component", "orchestrator"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	app.service, err = generation.NewService(
		orchestrator,
		credentialsFrom(cfg.LLM.APIKeys),
		generation.ServiceOptions{
			ChunkSize:           cfg.LLM.ChunkSize,
			MaxConcurrentChunks: cfg.LLM.MaxConcurrentChunks,
			RequestTimeout:      cfg.LLM.RequestTimeout,
		},
		logger.With("component", "generation_service"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	logger.Info("Application initialized successfully",
		"provider", invoker.Name(),
		"model", cfg.LLM.ModelName,
		"credentials", len(cfg.LLM.APIKeys))
	return app, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
