// Package config loads the service settings used by the background-image
// commands from the environment. User preferences (phase lengths, goals) live in
// the storage package instead.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Replicate image generation
	ReplicateAPIToken     string        `env:"REPLICATE_API_TOKEN"`
	ReplicateAPIURL       string        `env:"REPLICATE_API_URL" envDefault:"https://api.replicate.com/v1"`
	ReplicateModelID      string        `env:"REPLICATE_MODEL_ID" envDefault:"black-forest-labs/flux-1.1-pro"`
	ReplicateAspectRatio  string        `env:"REPLICATE_DEFAULT_ASPECT" envDefault:"16:9"`
	ReplicateOutputFormat string        `env:"REPLICATE_DEFAULT_FORMAT" envDefault:"webp"`
	ReplicateQuality      int           `env:"REPLICATE_DEFAULT_QUALITY" envDefault:"80"`
	ReplicateSafety       int           `env:"REPLICATE_DEFAULT_SAFETY" envDefault:"6"`
	GenerationTimeout     time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	PollInterval          time.Duration `env:"GENERATION_POLL_INTERVAL" envDefault:"1s"`

	// Redis backs the rate limiter and the prompt cache. Empty disables both.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"10"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	CacheTTL        time.Duration `env:"BACKGROUND_CACHE_TTL" envDefault:"168h"`
}

// ValidationError reports a setting outside its allowed range.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Load reads a .env file when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Debug("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return ValidationError{Field: "LOG_LEVEL", Message: err.Error()}
	}
	if c.ReplicateQuality < 1 || c.ReplicateQuality > 100 {
		return ValidationError{Field: "REPLICATE_DEFAULT_QUALITY", Message: "must be between 1 and 100"}
	}
	if c.ReplicateSafety < 1 || c.ReplicateSafety > 6 {
		return ValidationError{Field: "REPLICATE_DEFAULT_SAFETY", Message: "must be between 1 and 6"}
	}
	if c.GenerationTimeout <= 0 {
		return ValidationError{Field: "GENERATION_TIMEOUT", Message: "must be positive"}
	}
	if c.PollInterval <= 0 {
		return ValidationError{Field: "GENERATION_POLL_INTERVAL", Message: "must be positive"}
	}
	if c.RateLimitMax < 1 {
		return ValidationError{Field: "RATE_LIMIT_MAX", Message: "must be at least 1"}
	}
	if c.RateLimitWindow <= 0 {
		return ValidationError{Field: "RATE_LIMIT_WINDOW", Message: "must be positive"}
	}
	return nil
}

// RequireReplicate is checked by commands that actually call the image API.
func (c *Config) RequireReplicate() error {
	if c.ReplicateAPIToken == "" {
		return ValidationError{Field: "REPLICATE_API_TOKEN", Message: "environment variable is required"}
	}
	return nil
}
