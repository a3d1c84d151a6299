package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// CatalogFile is the JSON document stored in object storage. Empty lists
// leave the corresponding defaults in place.
type CatalogFile struct {
	TrustedDomains   []string `json:"trusted_domains"`
	GenerationModels []string `json:"generation_models"`
}

// CatalogLoader serves trusted domains and generation models, overlaying an
// optional S3 document on top of the configured defaults. It fails open: any
// fetch or parse error keeps the last good values.
type CatalogLoader struct {
	loader *S3Loader

	mu             sync.RWMutex
	trustedDomains []string
	models         []string

	defaultDomains []string
	defaultModels  []string
	logger         *slog.Logger
}

// CatalogConfig holds configuration for the catalog loader.
type CatalogConfig struct {
	S3             S3LoaderConfig
	TrustedDomains []string
	Models         []string
}

// NewCatalogLoader creates a catalog loader seeded with the defaults.
func NewCatalogLoader(cfg CatalogConfig) *CatalogLoader {
	if cfg.S3.Logger == nil {
		cfg.S3.Logger = slog.Default()
	}
	return &CatalogLoader{
		loader:         NewS3Loader(cfg.S3),
		trustedDomains: cfg.TrustedDomains,
		models:         cfg.Models,
		defaultDomains: cfg.TrustedDomains,
		defaultModels:  cfg.Models,
		logger:         cfg.S3.Logger,
	}
}

// Load performs a blocking initial fetch. Safe to call when S3 is disabled.
func (c *CatalogLoader) Load(ctx context.Context) {
	if !c.loader.IsEnabled() {
		return
	}
	c.refresh(ctx)
}

// MaybeRefresh triggers a background refresh when the cache TTL has elapsed.
func (c *CatalogLoader) MaybeRefresh(ctx context.Context) {
	if !c.loader.IsEnabled() || !c.loader.NeedsRefresh() {
		return
	}
	go c.refresh(context.WithoutCancel(ctx))
}

// TrustedDomains returns the current trusted domain list.
func (c *CatalogLoader) TrustedDomains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.trustedDomains...)
}

// GenerationModels returns the current ranked candidate identifiers.
func (c *CatalogLoader) GenerationModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.models...)
}

// Stats exposes the underlying loader state.
func (c *CatalogLoader) Stats() S3LoaderStats {
	return c.loader.Stats()
}

func (c *CatalogLoader) refresh(ctx context.Context) {
	result, err := c.loader.Fetch(ctx)
	if err != nil || result == nil || result.NotChanged {
		return
	}

	var file CatalogFile
	if err := json.Unmarshal(result.Data, &file); err != nil {
		c.logger.Error("failed to parse catalog JSON", "error", err)
		return
	}

	domains := cleanList(file.TrustedDomains)
	if len(domains) == 0 {
		domains = c.defaultDomains
	}
	models := cleanList(file.GenerationModels)
	if len(models) == 0 {
		models = c.defaultModels
	}

	c.mu.Lock()
	c.trustedDomains = domains
	c.models = models
	c.mu.Unlock()

	c.logger.Info("catalog loaded from S3",
		"etag", result.Etag,
		"trusted_domains", len(domains),
		"generation_models", models,
	)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
