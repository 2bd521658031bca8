// Package config loads environment backed configuration for the Tresor backend.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all environment backed configuration, read once at startup
// and never mutated afterwards.
type Config struct {
	// HTTP server
	Port        int           `env:"PORT" envDefault:"5000"`
	MetricsPort int           `env:"METRICS_PORT" envDefault:"9091"`
	AppURL      string        `env:"APP_URL" envDefault:"http://localhost:5000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"120s"`

	// Upstream completion API (Groq, OpenAI-compatible)
	GroqAPIKey   string `env:"GROQ_API_KEY,notEmpty"`
	GroqBaseURL  string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	DefaultModel string `env:"DEFAULT_MODEL" envDefault:"llama-3.3-70b-versatile"`

	// Google Sign-In
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleJWKSURL      string        `env:"JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	GoogleIssuer       string        `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`
	JWKSRefreshEvery   time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"1h"`

	// Ragie document connector
	RagieAPIKey  string `env:"RAGIE_API_KEY"`
	RagieBaseURL string `env:"RAGIE_BASE_URL" envDefault:"https://api.ragie.ai"`

	// Storage backend for chat state: memory, file, redis or postgres.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"tresor-data.json"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisUsername  string `env:"REDIS_USERNAME"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file, parses environment variables into a
// Config and validates cross-field requirements.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.GroqBaseURL); err != nil {
		return nil, fmt.Errorf("invalid GROQ_BASE_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.GoogleJWKSURL); err != nil {
		return nil, fmt.Errorf("invalid JWKS_URL: %w", err)
	}

	switch cfg.StorageBackend {
	case "memory", "file":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("STORAGE_BACKEND=redis requires REDIS_ADDR")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return cfg, nil
}
