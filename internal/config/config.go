package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the API process.
type Config struct {
	Env  string `envconfig:"TILLPOINT_ENV" default:"development"`
	Addr string `envconfig:"TILLPOINT_ADDR" default:":8080"`

	PGDSN string `envconfig:"TILLPOINT_PG_DSN"`

	AuthSecret string        `envconfig:"TILLPOINT_AUTH_SECRET" required:"true"`
	AuthAlg    string        `envconfig:"TILLPOINT_AUTH_ALG" default:"HS256"`
	AccessTTL  time.Duration `envconfig:"TILLPOINT_ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"TILLPOINT_REFRESH_TTL" default:"336h"`

	// IdleTimeout rejects otherwise-valid tokens whose session has been
	// inactive for longer than this. Zero disables the check.
	IdleTimeout time.Duration `envconfig:"TILLPOINT_IDLE_TIMEOUT" default:"0"`
	// IdleWarning is surfaced to clients so UIs can warn before the
	// timeout hits. Informational only.
	IdleWarning time.Duration `envconfig:"TILLPOINT_IDLE_WARNING" default:"0"`

	LoginRatePerSecond int `envconfig:"TILLPOINT_LOGIN_RATE" default:"2"`
	LoginRateBurst     int `envconfig:"TILLPOINT_LOGIN_BURST" default:"5"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("auth secret must be provided")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if cfg.IdleTimeout < 0 || cfg.IdleWarning < 0 {
		return nil, errors.New("idle durations must not be negative")
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}
