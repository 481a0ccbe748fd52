package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/harvest/internal/blob"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	StoreBackend       string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath             string `env:"DB_PATH" envDefault:"data/harvest.db"`
	RedisURL           string `env:"REDIS_URL"`
	PostgresURL        string `env:"POSTGRES_URL"`
	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`

	// ScenariosFile replaces the built-in catalog when set.
	ScenariosFile string `env:"SCENARIOS_FILE"`

	// Seeded into the store on startup when no admin account exists.
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case blob.BackendSQLite, blob.BackendMemory:
	case blob.BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the %s backend", c.StoreBackend)
		}
	case blob.BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the %s backend", c.StoreBackend)
		}
	case blob.BackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// StoreOptions returns the settings for blob.Open.
func (c *Config) StoreOptions() blob.Options {
	return blob.Options{
		Backend:            c.StoreBackend,
		SQLitePath:         c.DBPath,
		RedisURL:           c.RedisURL,
		PostgresURL:        c.PostgresURL,
		GCSBucket:          c.GCSBucket,
		GCSCredentialsFile: c.GCSCredentialsFile,
	}
}

// Player configures cmd/player.
type Player struct {
	ServerURL string     `env:"HARVEST_URL" envDefault:"http://localhost:8080"`
	CacheFile string     `env:"HARVEST_CACHE" envDefault:"harvest-player.json"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func LoadPlayer() (*Player, error) {
	cfg, err := env.ParseAs[Player]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
