package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Path pattern: exact, "*" segment wildcard, or prefix when ending in "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

type envConfig struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"1000"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	Whitelist       []string      `env:"RATE_LIMIT_WHITELIST" envSeparator:","`
	Blacklist       []string      `env:"RATE_LIMIT_BLACKLIST" envSeparator:","`
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFrom loads rate limiting configuration from environ.
func LoadConfigFrom(environ map[string]string) (*Config, error) {
	return loadConfig(env.Options{Environment: environ})
}

func loadConfig(opts env.Options) (*Config, error) {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if !ec.Enabled {
		return &Config{Enabled: false}, nil
	}
	if ec.DefaultLimit < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_DEFAULT_LIMIT must be positive, got: %d", ec.DefaultLimit)
	}
	if ec.DefaultWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_DEFAULT_WINDOW must be positive, got: %s", ec.DefaultWindow)
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    ec.DefaultLimit,
		DefaultWindow:   ec.DefaultWindow,
		CleanupInterval: ec.CleanupInterval,
		Whitelist:       ipSet(ec.Whitelist),
		Blacklist:       ipSet(ec.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Provider calls
		{Path: "/api/sync-all", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/api/character/*/sync", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/api/debug/character/*/stats", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/api/item/*/icon", Method: "GET", Limit: 300, Window: time.Minute, Burst: 50},

		// Writes
		{Path: "/api/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/api/", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/api/", Method: "DELETE", Limit: 120, Window: time.Minute, Burst: 20},

		// Reads use the default limit; /health and /metrics are unlimited
	}
}

func ipSet(ips []string) map[string]bool {
	result := make(map[string]bool, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
