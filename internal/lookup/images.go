package lookup

import (
	"net/url"
	"strings"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

// junkImageMarkers are rejected for every source, trusted or not.
var junkImageMarkers = []string{"logo", "icon", "banner", "button", ".svg", "image/svg"}

// thumbnailSegments are rewritten to the full-size path before dedupe.
var thumbnailSegments = []struct{ from, to string }{
	{"/thumbs/", "/"},
	{"/thumb/", "/"},
	{"/thumbnails/", "/"},
	{"/small/", "/"},
	{"/preview/", "/"},
	{"_thumb.", "."},
	{"-thumb.", "."},
}

// IsJunkImage reports whether an image URL looks like site chrome rather than
// a vehicle photo.
func IsJunkImage(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range junkImageMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// StripThumbnail maps a thumbnail URL to its full-size counterpart.
func StripThumbnail(u string) string {
	for _, seg := range thumbnailSegments {
		if strings.Contains(u, seg.from) {
			u = strings.Replace(u, seg.from, seg.to, 1)
		}
	}
	return u
}

// ImageSet collects deduplicated image URLs in insertion order up to a cap.
type ImageSet struct {
	limit int
	seen  map[string]struct{}
	urls  []string
}

// NewImageSet returns a set capped at limit, clamped to 1..models.MaxImages.
func NewImageSet(limit int) *ImageSet {
	if limit <= 0 || limit > models.MaxImages {
		limit = models.MaxImages
	}
	return &ImageSet{limit: limit, seen: make(map[string]struct{})}
}

// Add inserts a URL if it is new, not junk, and the set has room. It
// reports whether the URL was added.
func (s *ImageSet) Add(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" || s.Full() || IsJunkImage(u) {
		return false
	}
	u = StripThumbnail(u)
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
	return true
}

// Full reports whether the cap has been reached.
func (s *ImageSet) Full() bool { return len(s.urls) >= s.limit }

// Len returns the number of collected URLs.
func (s *ImageSet) Len() int { return len(s.urls) }

// URLs returns a copy of the collected URLs.
func (s *ImageSet) URLs() []string {
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

// resolveURL makes ref absolute against base. Unparseable refs are dropped.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
