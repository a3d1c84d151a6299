package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

// DefaultTitle is used when a record page has no level-1 heading.
const DefaultTitle = "ნაპოვნია!"

// ProviderSpec declares how one upstream source is searched and parsed.
type ProviderSpec struct {
	// Name is the stable identifier used in configuration and logs.
	Name string
	// DisplayName is stored as info.source on hits.
	DisplayName string
	// SearchURL is a format string with one %s for the query-escaped key.
	SearchURL string
	// DirectRecord means SearchURL already is the record page. Such pages
	// answer 2xx for unknown keys too, so a hit needs evidence of the record:
	// RecordSelector must match, or the key must appear in the page text.
	DirectRecord bool
	// RecordSelector, when set, must match on a direct record page.
	RecordSelector string
	// VINOnly providers skip numeric record IDs.
	VINOnly bool
	// ResultSelector scopes record-link candidates. Defaults to "a[href]".
	ResultSelector string
	// LinkMarkers are href substrings identifying a record page. An href
	// containing the key itself always qualifies.
	LinkMarkers []string
	// ImageAllow lists URL substrings a photo must contain. Empty allows any
	// image that passes the junk filter.
	ImageAllow []string
}

// HTMLProvider executes a ProviderSpec against its upstream host.
type HTMLProvider struct {
	spec      ProviderSpec
	fetcher   Fetcher
	maxImages int
	logger    *slog.Logger
}

// NewHTMLProvider creates a provider strategy for spec.
func NewHTMLProvider(spec ProviderSpec, fetcher Fetcher, maxImages int, logger *slog.Logger) *HTMLProvider {
	if spec.ResultSelector == "" {
		spec.ResultSelector = "a[href]"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLProvider{spec: spec, fetcher: fetcher, maxImages: maxImages, logger: logger}
}

// Name implements chain.Strategy.
func (p *HTMLProvider) Name() string { return p.spec.Name }

// Attempt searches the upstream, follows the first record link, and parses
// the record page. Every failure becomes a typed miss.
func (p *HTMLProvider) Attempt(ctx context.Context, key models.LookupKey) Outcome {
	if p.spec.VINOnly && key.Kind() != models.KeyKindVIN {
		return miss(MissNotFound, "provider only supports VINs")
	}

	searchURL := fmt.Sprintf(p.spec.SearchURL, url.QueryEscape(key.String()))
	page, err := p.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return missFromFetchError(err)
	}

	if !p.spec.DirectRecord {
		doc, err := page.Document()
		if err != nil {
			return miss(MissError, err.Error())
		}
		link := p.findRecordLink(doc, key)
		if link == "" {
			return miss(MissNotFound, "no record link in search results")
		}
		p.logger.Debug("record page found", "provider", p.spec.Name, "url", link)

		page, err = p.fetcher.Fetch(ctx, link)
		if err != nil {
			return missFromFetchError(err)
		}
	}

	record, err := p.parseRecord(page, key)
	if err != nil {
		return miss(MissError, err.Error())
	}
	if record == nil {
		return miss(MissNotFound, "page shows no record for the key")
	}
	return hit(record)
}

// findRecordLink returns the first anchor in document order whose href
// carries a record marker or the key itself.
func (p *HTMLProvider) findRecordLink(doc *goquery.Document, key models.LookupKey) string {
	needle := strings.ToLower(key.String())
	var found string
	doc.Find(p.spec.ResultSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		if !strings.Contains(strings.ToLower(href), needle) && !containsAny(href, p.spec.LinkMarkers) {
			return true
		}
		found = resolveURL(doc.Url, href)
		return found == ""
	})
	return found
}

// parseRecord extracts title, photos and info fields. It returns nil when
// the page carries neither a heading nor a photo, or when a direct record
// page shows no evidence of the key.
func (p *HTMLProvider) parseRecord(page *Page, key models.LookupKey) (*models.VehicleRecord, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}
	text := FlattenText(doc)
	if p.spec.DirectRecord && !p.recordPresent(doc, text, key) {
		return nil, nil
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())

	images := NewImageSet(p.maxImages)
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := img.AttrOr("src", "")
		if src == "" || strings.HasPrefix(src, "data:") {
			src = img.AttrOr("data-src", "")
		}
		abs := resolveURL(doc.Url, src)
		if abs == "" {
			return true
		}
		if len(p.spec.ImageAllow) > 0 && !containsAny(abs, p.spec.ImageAllow) {
			return true
		}
		images.Add(abs)
		return !images.Full()
	})

	if title == "" && images.Len() == 0 {
		return nil, nil
	}
	if title == "" {
		title = DefaultTitle
	}

	record := &models.VehicleRecord{
		Title:  title,
		Images: images.URLs(),
		Info:   ExtractFields(text),
	}
	record.SetInfo(models.InfoSource, p.spec.DisplayName)
	return record, nil
}

func (p *HTMLProvider) recordPresent(doc *goquery.Document, text string, key models.LookupKey) bool {
	if p.spec.RecordSelector != "" {
		return doc.Find(p.spec.RecordSelector).Length() > 0
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(key.String()))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
