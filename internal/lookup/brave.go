package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

// DefaultBraveBaseURL is the Brave Search API root.
const DefaultBraveBaseURL = "https://api.search.brave.com"

// ErrSearchNotConfigured is returned when no API key is set.
var ErrSearchNotConfigured = errors.New("brave search API key not configured")

// BraveSearcher implements Searcher against the Brave Search API.
type BraveSearcher struct {
	apiKey  string
	baseURL string
	count   int
	client  *http.Client
}

// BraveConfig holds configuration for creating a BraveSearcher.
type BraveConfig struct {
	APIKey  string
	BaseURL string
	// Count is results per query, clamped to 1..20.
	Count   int
	Timeout time.Duration
}

// NewBraveSearcher creates a Brave search client.
func NewBraveSearcher(cfg BraveConfig) *BraveSearcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBraveBaseURL
	}
	if cfg.Count <= 0 || cfg.Count > 20 {
		cfg.Count = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &BraveSearcher{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		count:   cfg.Count,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// SearchImages queries the image endpoint.
func (b *BraveSearcher) SearchImages(ctx context.Context, query string) ([]models.SearchResultCandidate, error) {
	body, err := b.get(ctx, "/res/v1/images/search", query, url.Values{"safesearch": {"off"}})
	if err != nil {
		return nil, err
	}

	var out []models.SearchResultCandidate
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		c := models.SearchResultCandidate{
			ImageURL:     r.Get("properties.url").String(),
			ThumbnailURL: r.Get("thumbnail.src").String(),
			SourceURL:    r.Get("url").String(),
			Title:        r.Get("title").String(),
		}
		if c.SourceURL == "" {
			c.SourceURL = r.Get("source").String()
		}
		out = append(out, c)
		return true
	})
	return out, nil
}

// SearchText queries the web endpoint.
func (b *BraveSearcher) SearchText(ctx context.Context, query string) ([]models.TextSearchResult, error) {
	body, err := b.get(ctx, "/res/v1/web/search", query, nil)
	if err != nil {
		return nil, err
	}

	var out []models.TextSearchResult
	gjson.GetBytes(body, "web.results").ForEach(func(_, r gjson.Result) bool {
		out = append(out, models.TextSearchResult{
			Title: r.Get("title").String(),
			URL:   r.Get("url").String(),
		})
		return true
	})
	return out, nil
}

func (b *BraveSearcher) get(ctx context.Context, path, query string, extra url.Values) ([]byte, error) {
	if b.apiKey == "" {
		return nil, ErrSearchNotConfigured
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", b.count))
	for k, v := range extra {
		params[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error: %s", resp.Status)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("search API returned invalid JSON")
	}
	return body, nil
}
