// Package handlers contains HTTP handlers for the API.
//
// Domain operations always answer HTTP 200. Failures are reported as an
// {"error": "..."} body localized through the Accept-Language header, so
// callers check for the error key rather than the status code.
package handlers

import (
	"context"

	"github.com/jmylchreest/vincheck-api/internal/version"
)

// HealthCheckOutput represents health check response.
type HealthCheckOutput struct {
	Body struct {
		Status           string `json:"status"`
		Version          string `json:"version"`
		AnalysisEnabled  bool   `json:"analysis_enabled" doc:"Whether a generation backend credential is configured"`
		FallbackEnabled  bool   `json:"search_fallback_enabled" doc:"Whether the image search fallback is configured"`
		LookupStrategies int    `json:"lookup_strategies" doc:"Number of strategies in the lookup chain"`
	}
}

// HealthReporter supplies the capability flags shown by the health check.
type HealthReporter interface {
	AnalysisEnabled() bool
	SearchFallbackEnabled() bool
	LookupStrategies() int
}

// HealthHandler serves health and probe endpoints.
type HealthHandler struct {
	reporter HealthReporter
}

// NewHealthHandler creates a health handler. reporter may be nil.
func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// HealthCheck returns the health status of the API.
func (h *HealthHandler) HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	out := &HealthCheckOutput{}
	out.Body.Status = "healthy"
	out.Body.Version = version.Get().Short()
	if h.reporter != nil {
		out.Body.AnalysisEnabled = h.reporter.AnalysisEnabled()
		out.Body.FallbackEnabled = h.reporter.SearchFallbackEnabled()
		out.Body.LookupStrategies = h.reporter.LookupStrategies()
	}
	return out, nil
}

// LivezOutput represents the liveness probe response.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Livez reports that the process is serving.
func Livez(ctx context.Context, input *struct{}) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// ReadyzOutput represents the readiness probe response.
type ReadyzOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Readyz reports ready once at least one lookup strategy is wired. Analysis
// is optional and does not affect readiness.
func (h *HealthHandler) Readyz(ctx context.Context, input *struct{}) (*ReadyzOutput, error) {
	out := &ReadyzOutput{}
	if h.reporter != nil && h.reporter.LookupStrategies() == 0 {
		out.Body.Status = "not_ready"
		return out, nil
	}
	out.Body.Status = "ok"
	return out, nil
}
