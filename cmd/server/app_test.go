package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-gateway/internal/config"
	"github.com/phrazzld/scry-gateway/internal/generation"
	"github.com/phrazzld/scry-gateway/internal/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:               8080,
			LogLevel:           "info",
			CORSAllowedOrigins: []string{"*"},
			MaxBodyBytes:       1 << 20,
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       5 * time.Second,
			ShutdownTimeout:    time.Second,
		},
		LLM: config.LLMConfig{
			Provider:            "gemini",
			ModelName:           "gemini-2.5-flash",
			CredentialEnv:       "GOOGLE_AI_KEY",
			MaxRetries:          3,
			BaseDelay:           time.Millisecond,
			MaxDelay:            5 * time.Millisecond,
			AttemptTimeout:      2 * time.Second,
			RequestTimeout:      10 * time.Second,
			ChunkSize:           10,
			MaxConcurrentChunks: 2,
			APIKeys: []config.APIKey{
				{Name: "GOOGLE_AI_KEY", Value: "primary-secret"},
				{Name: "GOOGLE_AI_KEY_2", Value: "backup-secret"},
			},
		},
	}
}

func TestNewInvokerSelectsProvider(t *testing.T) {
	for _, provider := range []string{"gemini", "openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			cfg := testConfig().LLM
			cfg.Provider = provider

			inv, err := newInvoker(testLogger(), cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, provider, inv.Name())
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig().LLM
		cfg.Provider = "llama"

		_, err := newInvoker(testLogger(), cfg, nil)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestCredentialsFrom(t *testing.T) {
	creds := credentialsFrom(testConfig().LLM.APIKeys)

	require.Len(t, creds, 2)
	assert.Equal(t, generation.Credential{Name: "GOOGLE_AI_KEY", Secret: "primary-secret"}, creds[0])
	assert.Equal(t, "GOOGLE_AI_KEY_2", creds[1].String())
}

func TestPolicyFrom(t *testing.T) {
	p := policyFrom(testConfig().LLM)

	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Millisecond, p.BaseDelay)
	assert.Equal(t, 5*time.Millisecond, p.MaxDelay)
	assert.Equal(t, 2*time.Second, p.AttemptTimeout)
}

func TestNewApplication(t *testing.T) {
	t.Run("with injected invoker", func(t *testing.T) {
		inv := &mocks.MockInvoker{}
		app, err := newApplication(testConfig(), testLogger(), inv)
		require.NoError(t, err)
		assert.Same(t, inv, app.invoker)
		assert.NotNil(t, app.service)
	})

	t.Run("builds configured provider", func(t *testing.T) {
		app, err := newApplication(testConfig(), testLogger(), nil)
		require.NoError(t, err)
		assert.Equal(t, "gemini", app.invoker.Name())
	})

	t.Run("no credentials", func(t *testing.T) {
		cfg := testConfig()
		cfg.LLM.APIKeys = nil

		_, err := newApplication(cfg, testLogger(), &mocks.MockInvoker{})
		assert.ErrorIs(t, err, generation.ErrNoCredentials)
	})
}
