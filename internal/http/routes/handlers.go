package routes

import (
	"context"

	"github.com/jmylchreest/vincheck-api/internal/http/handlers"
)

// Handlers holds every operation function the router registers. Fields are
// functions so the OpenAPI generator can pass signature-only stubs.
type Handlers struct {
	HealthCheck func(ctx context.Context, input *struct{}) (*handlers.HealthCheckOutput, error)
	Livez       func(ctx context.Context, input *struct{}) (*handlers.LivezOutput, error)
	Readyz      func(ctx context.Context, input *struct{}) (*handlers.ReadyzOutput, error)
	Backends    func(ctx context.Context, input *struct{}) (*handlers.BackendsOutput, error)

	CheckVIN         func(ctx context.Context, input *handlers.CheckVINInput) (*handlers.CheckVINOutput, error)
	Analyze          func(ctx context.Context, input *handlers.AnalyzeInput) (*handlers.AnalysisOutput, error)
	ScrapeAndAnalyze func(ctx context.Context, input *handlers.ScrapeAndAnalyzeInput) (*handlers.AnalysisOutput, error)
}

// NewHandlers wires the live handler implementations.
func NewHandlers(health *handlers.HealthHandler, lookup *handlers.LookupHandler, analysis *handlers.AnalysisHandler, backends *handlers.BackendsHandler) *Handlers {
	return &Handlers{
		HealthCheck:      health.HealthCheck,
		Livez:            handlers.Livez,
		Readyz:           health.Readyz,
		Backends:         backends.GetBackends,
		CheckVIN:         lookup.CheckVIN,
		Analyze:          analysis.Analyze,
		ScrapeAndAnalyze: analysis.ScrapeAndAnalyze,
	}
}
