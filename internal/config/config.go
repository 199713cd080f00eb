// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upstream realtime monitor API
	UpstreamURL    string        `env:"UPSTREAM_URL" envDefault:"https://www.wienerlinien.at/ogd_realtime/monitor"`
	UpstreamSender string        `env:"UPSTREAM_SENDER"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	// Per-client sliding window
	RateLimit  int           `env:"RATE_LIMIT" envDefault:"50"`
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"60s"`

	// Offline station dataset
	StationsFile string `env:"STATIONS_FILE" envDefault:"data/stations.yaml"`

	// Feedback subsystem (optional; disabled without a database)
	DatabaseURL      string `env:"DATABASE_URL"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	SMTPAddr         string `env:"SMTP_ADDR"`
	EmailFrom        string `env:"EMAIL_FROM" envDefault:"no-reply@wlboard.local"`
	FeedbackNotifyTo string `env:"FEEDBACK_NOTIFY_TO"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values env parsing cannot.
func (c Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("RATE_WINDOW must be positive, got %v", c.RateWindow)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("UPSTREAM_URL must not be empty")
	}
	return nil
}

// HasFeedback reports whether the feedback service can run.
func (c Config) HasFeedback() bool {
	return c.DatabaseURL != ""
}

// HasNotifications reports whether feedback submissions get a worker email.
func (c Config) HasNotifications() bool {
	return c.HasFeedback() && c.RedisAddr != "" && c.FeedbackNotifyTo != ""
}
