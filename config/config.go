// Package config loads pulsectl settings from a .env file, the environment and
// command-line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/qodetech/pulsectl/pkg/validation"
	"github.com/rs/zerolog/log"
)

// Store backends.
const (
	StoreSQLite  = "sqlite"
	StoreKeyring = "keyring"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

const refreshPath = "/auth/refresh-token"

type RedisConfig struct {
	Addr     string `env:"PULSE_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"PULSE_REDIS_PASSWORD"`
	DB       int    `env:"PULSE_REDIS_DB" env-default:"0"`
	Prefix   string `env:"PULSE_REDIS_PREFIX" env-default:"pulsectl:"`
}

// Config is the full runtime configuration.
type Config struct {
	APIURL     string `env:"PULSE_API_URL" env-default:"http://localhost:8080"`
	PyAPIURL   string `env:"PULSE_PY_API_URL" env-default:"http://localhost:8000"`
	DataAPIURL string `env:"PULSE_DATA_API_URL" env-default:"http://localhost:8001"`
	ClientID   string `env:"PULSE_CLIENT_ID"`

	// RefreshURL defaults to the python API's refresh route.
	RefreshURL string `env:"PULSE_REFRESH_URL"`
	LoginPath  string `env:"PULSE_LOGIN_PATH" env-default:"/login"`
	LogoutPath string `env:"PULSE_LOGOUT_PATH" env-default:"/logout"`
	MePath     string `env:"PULSE_ME_PATH" env-default:"/auth/me"`

	RefreshTimeout time.Duration `env:"PULSE_REFRESH_TIMEOUT" env-default:"10s"`
	RequestTimeout time.Duration `env:"PULSE_REQUEST_TIMEOUT" env-default:"30s"`

	Store          string `env:"PULSE_STORE" env-default:"sqlite"`
	DBPath         string `env:"PULSE_DB_PATH"`
	KeyringService string `env:"PULSE_KEYRING_SERVICE" env-default:"pulsectl"`
	Redis          RedisConfig
}

// Overrides holds values given on the command line. Empty fields are ignored.
type Overrides struct {
	APIURL     string
	PyAPIURL   string
	DataAPIURL string
	ClientID   string
	Store      string
	DBPath     string
}

// Load reads envFile (".env" when empty) if it exists, then the environment,
// applies overrides and validates the result.
func Load(envFile string, o Overrides) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", envFile).Msg("Failed to read env file")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.Apply(o)
	if cfg.RefreshURL == "" {
		cfg.RefreshURL = strings.TrimRight(cfg.PyAPIURL, "/") + refreshPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.warn()

	log.Debug().
		Str("api_url", cfg.APIURL).
		Str("py_api_url", cfg.PyAPIURL).
		Str("data_api_url", cfg.DataAPIURL).
		Str("refresh_url", cfg.RefreshURL).
		Str("store", cfg.Store).
		Msg("Configuration loaded")
	return &cfg, nil
}

// Apply copies every non-empty override into c.
func (c *Config) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.APIURL, o.APIURL)
	set(&c.PyAPIURL, o.PyAPIURL)
	set(&c.DataAPIURL, o.DataAPIURL)
	set(&c.ClientID, o.ClientID)
	set(&c.Store, o.Store)
	set(&c.DBPath, o.DBPath)
}

// Validate checks URLs, the store backend and timeouts.
func (c *Config) Validate() error {
	urls := []struct{ name, value string }{
		{"PULSE_API_URL", c.APIURL},
		{"PULSE_PY_API_URL", c.PyAPIURL},
		{"PULSE_DATA_API_URL", c.DataAPIURL},
		{"PULSE_REFRESH_URL", c.RefreshURL},
	}
	for _, u := range urls {
		if err := validation.ValidateBaseURL(u.value); err != nil {
			return fmt.Errorf("invalid %s: %w", u.name, err)
		}
	}

	switch c.Store {
	case StoreSQLite, StoreKeyring, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid PULSE_STORE %q (must be one of: %s, %s, %s, %s)",
			c.Store, StoreSQLite, StoreKeyring, StoreRedis, StoreMemory)
	}

	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("PULSE_REFRESH_TIMEOUT must be positive, got %s", c.RefreshTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("PULSE_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c *Config) warn() {
	for _, u := range []string{c.APIURL, c.PyAPIURL, c.DataAPIURL, c.RefreshURL} {
		if strings.HasPrefix(u, "http://") {
			log.Warn().Str("url", u).Msg("Using plain HTTP, tokens are sent unencrypted")
		}
	}
	if c.ClientID != "" {
		if _, err := uuid.Parse(c.ClientID); err != nil {
			log.Warn().Str("client_id", c.ClientID).Msg("PULSE_CLIENT_ID doesn't appear to be a valid UUID")
		}
	}
}
