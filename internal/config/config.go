// Package config provides configuration loading and validation for the roster
// service and CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
)

// Config is the process configuration read from environment variables.
// CLI flags override individual fields after loading.
type Config struct {
	// Server
	Port        int      `env:"ROSTER_PORT" envDefault:"5000"`
	CORSOrigins []string `env:"ROSTER_CORS_ORIGINS" envSeparator:","`

	// Storage
	DataFile string `env:"ROSTER_DATA_FILE"` // explicit document path
	DataDir  string `env:"HOOL_DATA_DIR"`    // directory holding data.json when DataFile is unset

	// Logging
	LogLevel  string `env:"ROSTER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ROSTER_LOG_FORMAT" envDefault:"json"`

	// Provider
	SharedClientID     string        `env:"ROSTER_SHARED_CLIENT_ID"`
	SharedClientSecret string        `env:"ROSTER_SHARED_CLIENT_SECRET"`
	ProviderTimeout    time.Duration `env:"ROSTER_PROVIDER_TIMEOUT" envDefault:"15s"`
	TokenTimeout       time.Duration `env:"ROSTER_TOKEN_TIMEOUT" envDefault:"10s"`
	APIBaseURL         string        `env:"ROSTER_PROVIDER_API_URL"`
	TokenURL           string        `env:"ROSTER_PROVIDER_TOKEN_URL"`

	// Auth. Bearer authentication is enabled when JWTSecret is set.
	JWTSecret          string `env:"ROSTER_JWT_SECRET"`
	JWTExpirationHours int    `env:"ROSTER_JWT_EXPIRATION_HOURS" envDefault:"24"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates the configuration and canonicalizes string values.
func (c *Config) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("ROSTER_PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("ROSTER_PROVIDER_TIMEOUT must be positive, got: %s", c.ProviderTimeout)
	}
	if c.TokenTimeout <= 0 {
		return fmt.Errorf("ROSTER_TOKEN_TIMEOUT must be positive, got: %s", c.TokenTimeout)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid ROSTER_LOG_LEVEL: %w", err)
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("ROSTER_LOG_FORMAT must be json or console, got: %q", c.LogFormat)
	}

	var origins []string
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
	return nil
}

// AuthEnabled reports whether API requests require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// JWT returns the token configuration. It fails when no secret is configured.
func (c *Config) JWT() (*JWTConfig, error) {
	return NewJWTConfig(c.JWTSecret, c.JWTExpirationHours)
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

