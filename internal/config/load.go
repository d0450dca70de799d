package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MaxAPIKeys is the number of credential variables read: the primary plus _2 through _10.
const MaxAPIKeys = 10

// ErrNoAPIKeys is returned when none of the credential variables is set.
var ErrNoAPIKeys = errors.New("no provider API keys configured")

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.APIKeys = CollectAPIKeys(cfg.LLM.CredentialEnv, os.LookupEnv)
	if len(cfg.LLM.APIKeys) == 0 {
		return nil, fmt.Errorf("%w: set %s or %s_2 through %s_%d",
			ErrNoAPIKeys, cfg.LLM.CredentialEnv, cfg.LLM.CredentialEnv, cfg.LLM.CredentialEnv, MaxAPIKeys)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.max_body_bytes", 20<<20)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model_name", "gemini-2.5-flash")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.credential_env", "GOOGLE_AI_KEY")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay", time.Second)
	v.SetDefault("llm.max_delay", 10*time.Second)
	v.SetDefault("llm.jitter", time.Second)
	v.SetDefault("llm.attempt_timeout", 15*time.Second)
	v.SetDefault("llm.request_timeout", 90*time.Second)
	v.SetDefault("llm.chunk_size", 10)
	v.SetDefault("llm.max_concurrent_chunks", 4)

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.service_name", "scry-gateway")
}

// loadDotEnv loads path into the process environment when it exists.
// Variables already set are not overridden.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// CollectAPIKeys reads base, base_2 … base_10 through lookup and returns the
// non-empty values in that order.
func CollectAPIKeys(base string, lookup func(string) (string, bool)) []APIKey {
	if base == "" {
		return nil
	}

	var keys []APIKey
	for i := 1; i <= MaxAPIKeys; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		value, ok := lookup(name)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		keys = append(keys, APIKey{Name: name, Value: value})
	}
	return keys
}
