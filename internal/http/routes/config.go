// Package routes provides shared route registration for the vincheck API.
// The server and the OpenAPI generator use the same definitions, so the
// published spec always matches what is served.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/vincheck-api/internal/version"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(baseURL string) huma.Config {
	cfg := huma.DefaultConfig("vincheck API", version.Get().Short())
	cfg.Info.Description = "Vehicle history lookup by VIN or auction record ID, with AI-assisted listing assessment."

	// Responses are consumed by a plain browser UI; no $schema links.
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Lookup", Description: "Vehicle record lookup across auction history sources"},
		{Name: "Analysis", Description: "AI assessment of a listing"},
		{Name: "Health", Description: "System health and backend status"},
	}
	return cfg
}
