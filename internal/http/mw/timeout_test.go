package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ========================================
// deadlineFor Tests
// ========================================

func TestDeadlineFor(t *testing.T) {
	cfg := TimeoutConfig{
		Default:          60 * time.Second,
		Extended:         180 * time.Second,
		ExtendedPatterns: []string{"/analyze", "/scrape_and_analyze"},
		SkipPatterns:     []string{"/static/"},
	}

	tests := []struct {
		path string
		want time.Duration
	}{
		{"/check_vin", 60 * time.Second},
		{"/analyze", 180 * time.Second},
		{"/scrape_and_analyze", 180 * time.Second},
		{"/static/app.js", 0},
		{"/healthz", 60 * time.Second},
	}
	for _, tt := range tests {
		if got := deadlineFor(cfg, tt.path); got != tt.want {
			t.Errorf("deadlineFor(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// ========================================
// Timeout Middleware Tests
// ========================================

func TestTimeout_SetsDeadline(t *testing.T) {
	cfg := TimeoutConfig{Default: time.Minute, Extended: 3 * time.Minute, ExtendedPatterns: []string{"/analyze"}}

	var remaining time.Duration
	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("expected a deadline on the request context")
			return
		}
		remaining = time.Until(deadline)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if remaining <= time.Minute || remaining > 3*time.Minute {
		t.Errorf("remaining = %v, want extended deadline", remaining)
	}
}

func TestTimeout_SkipPattern(t *testing.T) {
	cfg := TimeoutConfig{Default: time.Minute, SkipPatterns: []string{"/static/"}}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("skipped path should carry no deadline")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/index.html", nil))
}

func TestTimeout_ExpiredDeadlineLeavesResponseToHandler(t *testing.T) {
	cfg := TimeoutConfig{Default: 10 * time.Millisecond}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"error":"timeout"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check_vin", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want handler-written %d", rec.Code, http.StatusOK)
	}
}
