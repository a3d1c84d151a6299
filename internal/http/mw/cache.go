package mw

import (
	"net/http"
	"strings"
)

// CachePolicy maps a path prefix to a Cache-Control value.
type CachePolicy struct {
	Prefix       string
	CacheControl string
}

// CacheConfig holds the cache middleware configuration.
type CacheConfig struct {
	// Policies are matched in order; first match wins.
	Policies []CachePolicy
	// DefaultPolicy applies when nothing matches (empty sets no header).
	DefaultPolicy string
}

// DefaultCacheConfig caches the static UI briefly and nothing else. Lookup and
// analysis results reflect live upstream state.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultPolicy: "no-store",
		Policies: []CachePolicy{
			{Prefix: "/static/", CacheControl: "public, max-age=3600"},
			{Prefix: "/healthz", CacheControl: "no-store"},
			{Prefix: "/readyz", CacheControl: "no-store"},
			{Prefix: "/api/v1/health", CacheControl: "public, max-age=10"},
		},
	}
}

// Cache returns middleware that sets Cache-Control headers by path. Non-GET
// and non-HEAD requests always get "no-store".
func Cache(cfg CacheConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Cache-Control", "no-store")
				next.ServeHTTP(w, r)
				return
			}

			for _, policy := range cfg.Policies {
				if strings.HasPrefix(r.URL.Path, policy.Prefix) {
					w.Header().Set("Cache-Control", policy.CacheControl)
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.DefaultPolicy != "" {
				w.Header().Set("Cache-Control", cfg.DefaultPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
