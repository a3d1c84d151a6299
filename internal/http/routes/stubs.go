package routes

import (
	"context"

	"github.com/jmylchreest/vincheck-api/internal/http/handlers"
)

// StubHandlers returns handlers that only carry type information, for
// OpenAPI generation without any live services.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: func(context.Context, *struct{}) (*handlers.HealthCheckOutput, error) { return nil, nil },
		Livez:       func(context.Context, *struct{}) (*handlers.LivezOutput, error) { return nil, nil },
		Readyz:      func(context.Context, *struct{}) (*handlers.ReadyzOutput, error) { return nil, nil },
		Backends:    func(context.Context, *struct{}) (*handlers.BackendsOutput, error) { return nil, nil },
		CheckVIN: func(context.Context, *handlers.CheckVINInput) (*handlers.CheckVINOutput, error) {
			return nil, nil
		},
		Analyze: func(context.Context, *handlers.AnalyzeInput) (*handlers.AnalysisOutput, error) {
			return nil, nil
		},
		ScrapeAndAnalyze: func(context.Context, *handlers.ScrapeAndAnalyzeInput) (*handlers.AnalysisOutput, error) {
			return nil, nil
		},
	}
}
