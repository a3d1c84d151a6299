package handlers

import (
	"encoding/json"
	"net/http"
)

// RateLimited writes the localized rate-limit error with HTTP 200, matching
// every other domain failure.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": Localize(r.Header.Get("Accept-Language"), MsgRateLimited),
	})
}
