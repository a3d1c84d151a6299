package mw

import (
	"net/http"
	"strings"
	"time"
)

// ExtendWriteDeadline lets matching requests write past the server's
// WriteTimeout. Generation calls routinely outlast the default.
func ExtendWriteDeadline(patterns []string, d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, pattern := range patterns {
				if strings.Contains(r.URL.Path, pattern) {
					// Not every ResponseWriter supports this; the request then
					// keeps the server default.
					_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d))
					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
