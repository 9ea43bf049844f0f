// Package config provides configuration for the chat backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the token signing key used when none is configured.
const DefaultJWTSecret = "change-me"

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `mapstructure:"http_port"`

	// Database
	DatabaseURL string `mapstructure:"database_url"`

	// Auth settings
	JWTSecret    string `mapstructure:"jwt_secret"`
	TokenTTLMs   int    `mapstructure:"token_ttl_ms"`
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`

	// Remote completion service; an empty API key selects the local fallback
	LLMBaseURL   string `mapstructure:"llm_base_url"`
	LLMAPIKey    string `mapstructure:"llm_api_key"`
	LLMTimeoutMs int    `mapstructure:"llm_timeout_ms"`

	// Chat turn settings
	DefaultModel       string   `mapstructure:"default_model"`
	DefaultTemperature float64  `mapstructure:"default_temperature"`
	TurnMaxDurationMs  int      `mapstructure:"turn_max_duration_ms"`
	FallbackDelayMs    int      `mapstructure:"fallback_delay_ms"`
	AllowedModels      []string `mapstructure:"allowed_models"`

	// Observability
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables take precedence over the file. An empty path looks for
// config.yaml in the working directory and silently skips it when absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("llm_api_key", "LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("database_url", "file:chatstream.db?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL")
	v.SetDefault("jwt_secret", DefaultJWTSecret)
	v.SetDefault("token_ttl_ms", int((7 * 24 * time.Hour).Milliseconds()))
	v.SetDefault("cookie_name", "access_token")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("llm_base_url", "https://api.openai.com")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_timeout_ms", 120000)
	v.SetDefault("default_model", "gpt-4o-mini")
	v.SetDefault("default_temperature", 0.3)
	v.SetDefault("turn_max_duration_ms", 300000)
	v.SetDefault("fallback_delay_ms", 30)
	v.SetDefault("allowed_models", []string{"gpt-4o", "gpt-4o-mini", "o3-mini"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("tracing_enabled", false)
}

// RemoteEnabled reports whether the remote completion service is configured.
func (c *Config) RemoteEnabled() bool {
	return c.LLMAPIKey != ""
}

// UsesDefaultJWTSecret reports whether tokens are signed with the built-in key.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMs) * time.Millisecond
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMs) * time.Millisecond
}

func (c *Config) TurnMaxDuration() time.Duration {
	return time.Duration(c.TurnMaxDurationMs) * time.Millisecond
}

func (c *Config) FallbackDelay() time.Duration {
	return time.Duration(c.FallbackDelayMs) * time.Millisecond
}
