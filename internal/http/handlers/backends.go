package handlers

import (
	"context"

	"github.com/jmylchreest/vincheck-api/internal/config"
	"github.com/jmylchreest/vincheck-api/internal/llm"
)

// StatusReporter exposes the generation backend selector state.
type StatusReporter interface {
	Status() llm.Status
}

// CatalogReporter exposes the remote catalog loader state.
type CatalogReporter interface {
	Stats() config.S3LoaderStats
}

// BackendsHandler serves the diagnostic backend status endpoint.
type BackendsHandler struct {
	reporter StatusReporter
	catalog  CatalogReporter
}

// NewBackendsHandler creates a new backends handler. catalog may be nil.
func NewBackendsHandler(reporter StatusReporter, catalog CatalogReporter) *BackendsHandler {
	return &BackendsHandler{reporter: reporter, catalog: catalog}
}

// BackendsBody is the selector snapshot plus the catalog that ranks it.
type BackendsBody struct {
	llm.Status
	Catalog *config.S3LoaderStats `json:"catalog,omitempty" doc:"Remote catalog loader state"`
}

// BackendsOutput represents the backend status response.
type BackendsOutput struct {
	Body BackendsBody
}

// GetBackends returns the selector state, active candidate and ranked list.
func (h *BackendsHandler) GetBackends(ctx context.Context, input *struct{}) (*BackendsOutput, error) {
	body := BackendsBody{Status: h.reporter.Status()}
	if h.catalog != nil {
		stats := h.catalog.Stats()
		body.Catalog = &stats
	}
	return &BackendsOutput{Body: body}, nil
}
