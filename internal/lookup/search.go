package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

// GlobalSearchSource is stored as info.source on search fallback hits.
const GlobalSearchSource = "Global Search"

// DefaultTrustedDomains are hosts accepted as genuine vehicle imagery. The
// first entry is the primary domain used for title synthesis.
var DefaultTrustedDomains = []string{
	"bidfax.info",
	"autoastat.com",
	"stat.vin",
	"poctra.com",
	"copart.com",
	"iaai.com",
	"autohelperbot.com",
	"carfast.express",
}

// searchHints are appended to the key, most specific first. The bare key is
// always queried last.
var searchHints = []string{"autoastat", "bidfax", "copart", "iaai"}

// Searcher is a general web and image search backend.
type Searcher interface {
	SearchImages(ctx context.Context, query string) ([]models.SearchResultCandidate, error)
	SearchText(ctx context.Context, query string) ([]models.TextSearchResult, error)
}

// SearchFallbackConfig holds configuration for creating a SearchFallback.
type SearchFallbackConfig struct {
	Searcher Searcher
	// TrustedDomains is consulted on every attempt so a reloaded catalog
	// takes effect without a restart. Nil uses DefaultTrustedDomains.
	TrustedDomains func() []string
	MaxImages      int
	Logger         *slog.Logger
}

// SearchFallback synthesizes a record from image search results. It trades
// precision for coverage and must run after every dedicated provider.
type SearchFallback struct {
	searcher  Searcher
	trusted   func() []string
	maxImages int
	logger    *slog.Logger
}

// NewSearchFallback creates the terminal lookup strategy.
func NewSearchFallback(cfg SearchFallbackConfig) *SearchFallback {
	if cfg.TrustedDomains == nil {
		cfg.TrustedDomains = func() []string { return DefaultTrustedDomains }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SearchFallback{
		searcher:  cfg.Searcher,
		trusted:   cfg.TrustedDomains,
		maxImages: cfg.MaxImages,
		logger:    cfg.Logger,
	}
}

// Name implements chain.Strategy.
func (s *SearchFallback) Name() string { return "search" }

// Attempt runs the query variants in order until the image cap is reached.
func (s *SearchFallback) Attempt(ctx context.Context, key models.LookupKey) Outcome {
	if s.searcher == nil {
		return miss(MissError, "search not configured")
	}

	trusted := s.trusted()
	if len(trusted) == 0 {
		trusted = DefaultTrustedDomains
	}

	images := NewImageSet(s.maxImages)
	var failures int
	queries := SearchQueries(key)
	for _, q := range queries {
		if images.Full() || ctx.Err() != nil {
			break
		}
		results, err := s.searcher.SearchImages(ctx, q)
		if err != nil {
			failures++
			s.logger.Warn("image search failed", "query", q, "error", err)
			continue
		}
		for _, c := range results {
			if !acceptCandidate(c, key, trusted) {
				continue
			}
			imageURL := c.ImageURL
			if imageURL == "" {
				imageURL = c.ThumbnailURL
			}
			images.Add(imageURL)
			if images.Full() {
				break
			}
		}
	}

	if images.Len() == 0 {
		if failures == len(queries) {
			return miss(MissError, "image search unavailable")
		}
		return miss(MissNotFound, "no trusted results")
	}

	record := &models.VehicleRecord{
		Title:  s.title(ctx, key, trusted[0]),
		Images: images.URLs(),
	}
	record.SetInfo(models.InfoSource, GlobalSearchSource)
	return hit(record)
}

// title takes the first text result for "<key> <primary domain>", cut at the
// first " - " or "|" style delimiter. The key itself is the fallback.
func (s *SearchFallback) title(ctx context.Context, key models.LookupKey, primary string) string {
	results, err := s.searcher.SearchText(ctx, fmt.Sprintf("%s %s", key, primary))
	if err != nil {
		s.logger.Debug("title search failed", "key", key, "error", err)
		return key.String()
	}
	if len(results) == 0 {
		return key.String()
	}
	if t := TrimTitle(results[0].Title); t != "" {
		return t
	}
	return key.String()
}

// SearchQueries returns the ordered query variants for a key.
func SearchQueries(key models.LookupKey) []string {
	queries := make([]string, 0, len(searchHints)+1)
	for _, hint := range searchHints {
		queries = append(queries, fmt.Sprintf("%s %s", key, hint))
	}
	return append(queries, key.String())
}

// TrimTitle truncates a search result title at the first '-' or '|'.
func TrimTitle(title string) string {
	if i := strings.IndexAny(title, "-|"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// acceptCandidate applies the trust filter. Junk images are rejected later by
// the image set regardless of trust.
func acceptCandidate(c models.SearchResultCandidate, key models.LookupKey, trusted []string) bool {
	if c.ImageURL == "" && c.ThumbnailURL == "" {
		return false
	}
	if hostTrusted(c.SourceURL, trusted) {
		return true
	}
	needle := strings.ToLower(key.String())
	return strings.Contains(strings.ToLower(c.SourceURL), needle) ||
		strings.Contains(strings.ToLower(c.Title), needle)
}

func hostTrusted(raw string, trusted []string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range trusted {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
