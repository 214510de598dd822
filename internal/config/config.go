// Package config содержит логику чтения конфигурации магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Драйверы хранилища документов.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config содержит параметры конфигурации магазина.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	DataDir       string `env:"DATA_DIR"`
	DatabaseURI   string `env:"DATABASE_URI"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL"`

	RedisURL        string        `env:"REDIS_URL"`
	LoginRateLimit  int64         `env:"LOGIN_RATE_LIMIT"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения, в том числе из необязательного файла .env, имеют
// приоритет над флагами.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.StorageDriver, "storage", StorageFile, "document storage driver: file or postgres")
	flag.StringVar(&cfg.DataDir, "data", "data", "directory for the file storage driver")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the postgres storage driver")
	flag.StringVar(&cfg.SessionSecret, "secret", "", "session cookie signing secret")
	flag.DurationVar(&cfg.SessionTTL, "ttl", 72*time.Hour, "session lifetime")
	flag.StringVar(&cfg.RedisURL, "redis", "", "redis URL for the login rate limiter")
	flag.Int64Var(&cfg.LoginRateLimit, "login-limit", 10, "login attempts per window and email")
	flag.DurationVar(&cfg.LoginRateWindow, "login-window", 15*time.Minute, "login rate limit window")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = StorageFile
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageFile:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for the %s storage driver", StorageFile)
		}
	case StoragePostgres:
		if c.DatabaseURI == "" {
			return fmt.Errorf("database URI is required for the %s storage driver", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}
