// Package service contains the business logic layer.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/vincheck-api/internal/config"
	"github.com/jmylchreest/vincheck-api/internal/llm"
	"github.com/jmylchreest/vincheck-api/internal/lookup"
)

// Services holds the wired lookup chain, backend selector and analysis
// service shared by the server and the CLI.
type Services struct {
	Lookup   *lookup.Resolver
	Selector *llm.Selector
	Analysis *AnalysisService
	Catalog  *config.CatalogLoader

	searchEnabled bool
}

// NewServices creates all service instances. The catalog is loaded once
// before returning and refreshed in the background as it is read.
func NewServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	catalog, err := newCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	catalog.Load(ctx)

	fetcher := lookup.NewCollyFetcher(lookup.FetcherConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.UpstreamTimeout,
		Logger:    logger,
	})
	providers, err := lookup.BuildProviders(cfg.LookupProviders, fetcher, cfg.LookupMaxImages, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup providers: %w", err)
	}

	var fallback lookup.Strategy
	if cfg.SearchEnabled() {
		fallback = lookup.NewSearchFallback(lookup.SearchFallbackConfig{
			Searcher: lookup.NewBraveSearcher(lookup.BraveConfig{
				APIKey:  cfg.BraveAPIKey,
				Timeout: cfg.UpstreamTimeout,
			}),
			TrustedDomains: func() []string {
				catalog.MaybeRefresh(ctx)
				return catalog.TrustedDomains()
			},
			MaxImages: cfg.LookupMaxImages,
			Logger:    logger,
		})
	} else {
		logger.Warn("BRAVE_API_KEY not set - search fallback disabled")
	}
	resolver := lookup.NewResolver(providers, fallback, logger)

	var backends []llm.Backend
	if cfg.GoogleAPIKey != "" {
		gemini, err := llm.NewGeminiBackend(ctx, llm.GeminiConfig{
			APIKey:  cfg.GoogleAPIKey,
			Timeout: cfg.AnalysisTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini backend: %w", err)
		}
		backends = append(backends, gemini)
	}
	if cfg.OpenRouterAPIKey != "" {
		backends = append(backends, llm.NewChatCompletionsBackend(llm.ChatCompletionsConfig{
			Provider: llm.ProviderOpenRouter,
			BaseURL:  cfg.OpenRouterBaseURL,
			APIKey:   cfg.OpenRouterAPIKey,
			Referer:  cfg.BaseURL,
			Title:    "vincheck",
			Timeout:  cfg.AnalysisTimeout,
			Logger:   logger,
		}))
	}
	if len(backends) == 0 {
		logger.Warn("no generation credentials set - analysis disabled")
	}

	selector := llm.NewSelector(llm.SelectorConfig{
		Candidates: func() []llm.Candidate {
			catalog.MaybeRefresh(ctx)
			return llm.ParseCandidates(catalog.GenerationModels())
		},
		Backends:     backends,
		ProbeTimeout: cfg.ProbeTimeout,
		Logger:       logger,
	})

	analysis := NewAnalysisService(AnalysisServiceConfig{
		Resolver:      resolver,
		Generator:     selector,
		FallbackLimit: cfg.AnalysisFallbackLimit,
		Logger:        logger,
	})

	return &Services{
		Lookup:        resolver,
		Selector:      selector,
		Analysis:      analysis,
		Catalog:       catalog,
		searchEnabled: fallback != nil,
	}, nil
}

func newCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*config.CatalogLoader, error) {
	s3cfg := config.S3LoaderConfig{
		Bucket:   cfg.ConfigBucket,
		Key:      cfg.ConfigKey,
		CacheTTL: cfg.CatalogTTL,
		Logger:   logger,
	}
	if cfg.StorageEnabled {
		client, err := config.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		s3cfg.Client = client
	}
	return config.NewCatalogLoader(config.CatalogConfig{
		S3:             s3cfg,
		TrustedDomains: lookup.DefaultTrustedDomains,
		Models:         cfg.GenerationModels,
	}), nil
}

// AnalysisEnabled reports whether any candidate has a backend.
func (s *Services) AnalysisEnabled() bool {
	return s.Analysis.Enabled()
}

// SearchFallbackEnabled reports whether the search fallback is in the chain.
func (s *Services) SearchFallbackEnabled() bool {
	return s.searchEnabled
}

// LookupStrategies returns the number of strategies in the lookup chain.
func (s *Services) LookupStrategies() int {
	return len(s.Lookup.Strategies())
}
