package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all runtime settings for the API server. Every field is read
// from the environment; defaults match the reference deployment.
type Config struct {
	Addr string `env:"LEADSNIPER_ADDR" envDefault:":8080"`

	// PGDSN enables the Postgres-backed stores; empty keeps everything in memory.
	PGDSN string `env:"LEADSNIPER_PG_DSN"`

	// RedisAddr switches the per-user rate limiter to the shared Redis backend.
	RedisAddr string `env:"LEADSNIPER_REDIS_ADDR"`

	AuthSecret string `env:"LEADSNIPER_AUTH_SECRET"`
	CronSecret string `env:"LEADSNIPER_CRON_SECRET"`

	GroqAPIKey  string  `env:"GROQ_API_KEY"`
	GroqBaseURL string  `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	Model       string  `env:"LEADSNIPER_MODEL" envDefault:"mixtral-8x7b-32768"`
	Temperature float32 `env:"LEADSNIPER_TEMPERATURE" envDefault:"0.7"`

	RateLimit  int           `env:"LEADSNIPER_RATE_LIMIT" envDefault:"5"`
	RateWindow time.Duration `env:"LEADSNIPER_RATE_WINDOW" envDefault:"1m"`
	MaxRetries int           `env:"LEADSNIPER_MAX_RETRIES" envDefault:"3"`

	FreeCredits     int64  `env:"LEADSNIPER_FREE_CREDITS" envDefault:"3"`
	CreditResetSpec string `env:"LEADSNIPER_CREDIT_RESET_CRON"`

	IPRateBurst  int `env:"LEADSNIPER_IP_RATE_BURST" envDefault:"100"`
	IPRatePerSec int `env:"LEADSNIPER_IP_RATE_PER_SEC" envDefault:"10"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("config: rate limit must be positive, got %d", cfg.RateLimit)
	}
	if cfg.RateWindow <= 0 {
		return Config{}, fmt.Errorf("config: rate window must be positive, got %s", cfg.RateWindow)
	}
	if cfg.MaxRetries <= 0 {
		return Config{}, fmt.Errorf("config: max retries must be positive, got %d", cfg.MaxRetries)
	}
	return cfg, nil
}
