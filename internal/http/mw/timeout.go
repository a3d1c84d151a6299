package mw

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// TimeoutConfig defines deadline behavior for different path patterns.
type TimeoutConfig struct {
	// Default deadline for most endpoints
	Default time.Duration
	// Extended deadline for generation-backed operations
	Extended time.Duration
	// Patterns that get the extended deadline (e.g., "/analyze")
	ExtendedPatterns []string
	// Patterns that get no deadline (e.g., "/static/")
	SkipPatterns []string
}

// Timeout returns a middleware that attaches a deadline to the request
// context. Handlers observe the deadline through ctx and answer with their own
// error body, so the middleware never writes to the response itself.
func Timeout(cfg TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timeout := deadlineFor(cfg, r.URL.Path)
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deadlineFor(cfg TimeoutConfig, path string) time.Duration {
	for _, pattern := range cfg.SkipPatterns {
		if strings.Contains(path, pattern) {
			return 0
		}
	}
	for _, pattern := range cfg.ExtendedPatterns {
		if strings.Contains(path, pattern) {
			return cfg.Extended
		}
	}
	return cfg.Default
}
