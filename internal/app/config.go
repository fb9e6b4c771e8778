package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console gateway.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// BackendBaseURL points at the legacy operations backend, including
	// any path prefix (e.g. http://legacy.internal/api/v1).
	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://127.0.0.1:4000/api/v1"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`

	// DiscountMode states how line discounts from the backend are read:
	// "absolute" or "percent". The backend carries no discriminator.
	DiscountMode string `envconfig:"DISCOUNT_MODE" default:"absolute"`

	CacheDriver string        `envconfig:"CACHE_DRIVER" default:"memory"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"60s"`
	RedisAddr   string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BackendBaseURL == "" {
		return nil, errors.New("backend base url must be provided")
	}
	if cfg.DiscountMode != "absolute" && cfg.DiscountMode != "percent" {
		return nil, errors.New("discount mode must be absolute or percent")
	}
	if cfg.CacheDriver != "memory" && cfg.CacheDriver != "redis" {
		return nil, errors.New("cache driver must be memory or redis")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
