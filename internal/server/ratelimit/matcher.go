package ratelimit

import (
	"net/http"
	"strings"
)

// Unlimited reports whether a request bypasses rate limiting entirely.
func Unlimited(path, method string) bool {
	return method == http.MethodGet && (path == "/health" || path == "/metrics")
}

// MatchEndpoint returns the index of the endpoint configuration that applies to
// path and method, or -1 when none does. Exact matches win over prefix matches;
// a configured path ending in "/" matches every path below it.
func MatchEndpoint(path string, method string, configs []EndpointConfig) int {
	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return i
		}
	}

	for i := range configs {
		cfg := &configs[i]
		if cfg.Method == method && strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			return i
		}
	}

	return -1
}
