package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" validate:"required,min=1"`
	// RateLimitPerMinute is the per-IP request limit on the generate endpoint. Zero disables it.
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	MaxBodyBytes       int64 `mapstructure:"max_body_bytes" validate:"gt=0"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	Provider  string `mapstructure:"provider" validate:"required,oneof=gemini openai anthropic"`
	ModelName string `mapstructure:"model_name" validate:"required"`
	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// CredentialEnv is the primary environment variable holding an API key.
	// Fallback keys are read from CredentialEnv_2 through CredentialEnv_10.
	CredentialEnv string `mapstructure:"credential_env" validate:"required"`

	MaxRetries int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay   time.Duration `mapstructure:"max_delay" validate:"gte=0"`
	Jitter     time.Duration `mapstructure:"jitter" validate:"gte=0"`

	// AttemptTimeout bounds one provider call. RequestTimeout bounds a whole
	// action and should exceed MaxRetries*AttemptTimeout.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`

	ChunkSize           int `mapstructure:"chunk_size" validate:"gte=1,lte=50"`
	MaxConcurrentChunks int `mapstructure:"max_concurrent_chunks" validate:"gte=1,lte=32"`

	// APIKeys is filled from the environment by Load, never from config files.
	APIKeys []APIKey `mapstructure:"-" validate:"required,min=1,dive"`
}

// APIKey is one provider credential and the environment variable it came from.
type APIKey struct {
	Name  string `validate:"required"`
	Value string `validate:"required"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	ServiceName    string `mapstructure:"service_name" validate:"required_if=TracingEnabled true"`
}
