// Package ratelimit applies per-client, per-endpoint request limits using
// go-chi/httprate sliding window counters.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/httprate"
)

// Limiter builds rate limiting middleware from a Config.
type Limiter struct {
	config    Config
	whitelist map[string]bool
}

// NewLimiter creates a limiter for config.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		config:    config,
		whitelist: parseIPList(config.Whitelist),
	}
}

// Middleware wraps next. Each endpoint configuration gets its own counter so a
// burst of reindex calls never consumes the budget of cheaper endpoints.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.config.Enabled {
		return next
	}

	opts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitResponse),
	}

	endpoints := make([]http.Handler, len(l.config.Endpoints))
	for i, ep := range l.config.Endpoints {
		endpoints[i] = httprate.Limit(ep.Limit, ep.Window, opts...)(next)
	}

	fallback := next
	if l.config.DefaultLimit > 0 && l.config.DefaultWindow > 0 {
		fallback = httprate.Limit(l.config.DefaultLimit, l.config.DefaultWindow, opts...)(next)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Unlimited(r.URL.Path, r.Method) || l.whitelist[clientIP(r)] {
			next.ServeHTTP(w, r)
			return
		}
		if i := MatchEndpoint(r.URL.Path, r.Method, l.config.Endpoints); i >= 0 {
			endpoints[i].ServeHTTP(w, r)
			return
		}
		fallback.ServeHTTP(w, r)
	})
}

// rateLimitResponse writes a 429 body. httprate has already set the Retry-After
// and X-RateLimit-* headers.
func rateLimitResponse(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limit_exceeded",
		"message": "Rate limit exceeded. Please try again later.",
	})
}

// clientIP extracts the client address from RemoteAddr ("IP:port").
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseIPList turns a list of addresses into a lookup set.
func parseIPList(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
