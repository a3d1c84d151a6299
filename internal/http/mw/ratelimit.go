package mw

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for per-IP rate limiting.
type RateLimitConfig struct {
	// RequestsPerMinute per client IP. 0 disables limiting.
	RequestsPerMinute int
	// PathPrefixes limits only matching paths. Empty applies to every path.
	PathPrefixes []string
	// LimitHandler writes the rejection. Defaults to httprate's 429.
	LimitHandler http.HandlerFunc
}

// RateLimitByIP returns a middleware that rate limits by client IP. It
// protects the upstream sources and backends that enforce their own limits.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []httprate.Option{httprate.WithKeyFuncs(httprate.KeyByIP)}
	if cfg.LimitHandler != nil {
		opts = append(opts, httprate.WithLimitHandler(cfg.LimitHandler))
	}
	limiter := httprate.NewRateLimiter(cfg.RequestsPerMinute, time.Minute, opts...)

	return func(next http.Handler) http.Handler {
		limited := limiter.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesPrefix(r.URL.Path, cfg.PathPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ThrottleConfig caps in-flight requests across all clients.
type ThrottleConfig struct {
	// Limit is the number of requests served at once. 0 disables the cap.
	Limit int
	// BacklogTimeout is how long a request may wait for a free slot.
	// Zero rejects at once when every slot is taken.
	BacklogTimeout time.Duration
	// LimitHandler writes the rejection. Defaults to a plain 429.
	LimitHandler http.HandlerFunc
}

// Throttle returns a middleware that serves at most cfg.Limit requests at a
// time. Unlike chi's Throttle, rejections go through cfg.LimitHandler.
func Throttle(cfg ThrottleConfig) func(http.Handler) http.Handler {
	if cfg.Limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	reject := cfg.LimitHandler
	if reject == nil {
		reject = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	slots := make(chan struct{}, cfg.Limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case slots <- struct{}{}:
			default:
				if !waitForSlot(r, slots, cfg.BacklogTimeout) {
					reject(w, r)
					return
				}
			}
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		})
	}
}

func waitForSlot(r *http.Request, slots chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-r.Context().Done():
		return false
	}
}
