package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// OperationOption modifies an operation before registration.
type OperationOption func(*huma.Operation)

// WithTags adds tags to the operation.
func WithTags(tags ...string) OperationOption {
	return func(op *huma.Operation) { op.Tags = append(op.Tags, tags...) }
}

// WithSummary sets the operation summary.
func WithSummary(summary string) OperationOption {
	return func(op *huma.Operation) { op.Summary = summary }
}

// WithDescription sets the operation description.
func WithDescription(desc string) OperationOption {
	return func(op *huma.Operation) { op.Description = desc }
}

// WithOperationID sets a custom operation ID.
func WithOperationID(id string) OperationOption {
	return func(op *huma.Operation) { op.OperationID = id }
}

// WithHidden hides the operation from the OpenAPI document.
func WithHidden() OperationOption {
	return func(op *huma.Operation) { op.Hidden = true }
}

func register[I, O any](api huma.API, method, path string, handler func(ctx context.Context, input *I) (*O, error), opts ...OperationOption) {
	op := huma.Operation{Method: method, Path: path}
	for _, opt := range opts {
		opt(&op)
	}
	huma.Register(api, op, handler)
}

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h *Handlers) {
	// =========================================================================
	// Lookup & analysis
	// =========================================================================

	register(api, http.MethodPost, "/check_vin", h.CheckVIN,
		WithTags("Lookup"),
		WithSummary("Look up a vehicle"),
		WithDescription("Derives a VIN or record ID from the input, then tries each history source in priority order and finally the image search fallback. Always answers 200; failures carry an `error` field."),
		WithOperationID("checkVin"))

	register(api, http.MethodPost, "/analyze", h.Analyze,
		WithTags("Analysis"),
		WithSummary("Assess listing text"),
		WithDescription("Returns the AI's JSON object (score, verdict, analysis) unchanged, or an `error` field."),
		WithOperationID("analyze"))

	register(api, http.MethodPost, "/scrape_and_analyze", h.ScrapeAndAnalyze,
		WithTags("Analysis"),
		WithSummary("Look up a listing URL and assess it"),
		WithOperationID("scrapeAndAnalyze"))

	// =========================================================================
	// Health & diagnostics
	// =========================================================================

	register(api, http.MethodGet, "/api/v1/health", h.HealthCheck,
		WithTags("Health"),
		WithSummary("Health check"),
		WithOperationID("healthCheck"))

	register(api, http.MethodGet, "/api/v1/backends", h.Backends,
		WithTags("Health"),
		WithSummary("Generation backend status"),
		WithDescription("Selector state (unselected, selected, failed), the active candidate and the ranked candidate list."),
		WithOperationID("getBackends"))

	// Kubernetes probes (hidden from docs)
	register(api, http.MethodGet, "/healthz", h.Livez, WithHidden())
	register(api, http.MethodGet, "/readyz", h.Readyz, WithHidden())
}
