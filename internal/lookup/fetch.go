package lookup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/vincheck-api/internal/protection"
)

// DefaultUserAgent is a current desktop Chrome UA. Upstream hosts reject
// obviously automated clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Page is a fetched upstream document.
type Page struct {
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Document parses the page body as HTML.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.URL, err)
	}
	doc.Url = p.URL
	return doc, nil
}

// Fetcher retrieves upstream pages. Non-2xx responses and detected blocks are
// returned as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// FetcherConfig holds configuration for creating a CollyFetcher.
type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// CollyFetcher issues browser-shaped GET requests through colly and checks
// each response for bot protection.
//
// Only the headers look like Chrome. The TLS ClientHello is Go's default and
// is not impersonated, so sources that fingerprint TLS (JA3/JA4) may refuse
// the connection or serve a challenge. Those cases surface as a blocked miss
// and the chain moves on.
type CollyFetcher struct {
	userAgent string
	timeout   time.Duration
	detector  *protection.Detector
	logger    *slog.Logger
}

// NewCollyFetcher creates a fetcher. Zero config values fall back to the
// Chrome user agent and a 30s timeout.
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CollyFetcher{
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		detector:  protection.NewDetector(),
		logger:    cfg.Logger,
	}
}

// Fetch retrieves a page. A fresh collector per call keeps requests from
// sharing cookies or visit history.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	page := &Page{URL: target}
	capture := func(r *colly.Response) {
		if r == nil {
			return
		}
		page.StatusCode = r.StatusCode
		page.Body = r.Body
		if r.Headers != nil {
			page.Header = *r.Headers
		}
		if r.Request != nil && r.Request.URL != nil {
			page.URL = r.Request.URL
		}
	}
	c.OnResponse(capture)
	c.OnError(func(r *colly.Response, _ error) { capture(r) })

	start := time.Now()
	visitErr := c.Visit(rawURL)

	f.logger.Debug("upstream fetch",
		"url", rawURL,
		"status", page.StatusCode,
		"bytes", len(page.Body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if page.StatusCode == 0 {
		if visitErr == nil {
			visitErr = errors.New("no response")
		}
		return nil, &FetchError{URL: rawURL, Err: visitErr}
	}

	detection := f.detector.DetectFromResponse(page.StatusCode, page.Header, page.Body)
	if detection.Detected {
		f.logger.Info("bot protection detected",
			"url", rawURL,
			"signal", detection.Signal,
			"confidence", detection.Confidence,
		)
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: page.StatusCode,
			Blocked:    true,
			Signal:     string(detection.Signal),
			Err:        errors.New(detection.Description),
		}
	}

	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: page.StatusCode, Err: visitErr}
	}

	return page, nil
}
