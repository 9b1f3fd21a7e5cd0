package ratelimit

import (
	"net/http"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        `koanf:"path"`   // Endpoint path pattern (supports prefix matching)
	Method string        `koanf:"method"` // HTTP method (GET, POST, etc.)
	Limit  int           `koanf:"limit" validate:"gte=1"`
	Window time.Duration `koanf:"window" validate:"gt=0"`
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled       bool             `koanf:"enabled"`
	DefaultLimit  int              `koanf:"default_limit" validate:"gte=0"`
	DefaultWindow time.Duration    `koanf:"default_window" validate:"gte=0"`
	Whitelist     []string         `koanf:"whitelist"`
	Endpoints     []EndpointConfig `koanf:"endpoints" validate:"dive"`
}

// DefaultConfig returns the production limits. A DefaultLimit of zero leaves
// unmatched endpoints unlimited.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		DefaultLimit:  600,
		DefaultWindow: time.Minute,
		Endpoints:     DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Full-corpus rewrites
		{Path: "/reindex", Method: http.MethodPost, Limit: 10, Window: time.Hour},
		{Path: "/reindex/stream", Method: http.MethodPost, Limit: 10, Window: time.Hour},

		// Store scans
		{Path: "/recommend", Method: http.MethodPost, Limit: 120, Window: time.Minute},
		{Path: "/students/", Method: http.MethodGet, Limit: 240, Window: time.Minute},

		// Pure computation, handled by the default limit
	}
}
