// Package models defines the domain models for the application.
// Records are produced fresh per request and never persisted.
package models

// Info field names. Absent fields are simply not present in the map.
const (
	InfoOdometer = "odometer"
	InfoDamage   = "damage"
	InfoEngine   = "engine"
	InfoSource   = "source"
)

// MaxImages is the upper bound on VehicleRecord.Images.
const MaxImages = 8

// LookupKey is the canonical identifier derived from user input: either a
// digits-only marketplace record ID or a raw VIN.
type LookupKey string

// KeyKind distinguishes the two key shapes.
type KeyKind string

const (
	KeyKindRecordID KeyKind = "record_id"
	KeyKindVIN      KeyKind = "vin"
)

func (k LookupKey) String() string { return string(k) }

// Kind reports whether the key is a numeric record ID or a VIN.
func (k LookupKey) Kind() KeyKind {
	for _, r := range k {
		if r < '0' || r > '9' {
			return KeyKindVIN
		}
	}
	return KeyKindRecordID
}

// VehicleRecord is the normalized output of a successful lookup.
type VehicleRecord struct {
	Title  string            `json:"title" doc:"Listing title (first level-1 heading)"`
	Images []string          `json:"images" doc:"Deduplicated photo URLs in insertion order (at most 8)"`
	Info   map[string]string `json:"info" doc:"Condition attributes: odometer, damage, engine, source"`
}

// SetInfo stores a non-empty info field.
func (r *VehicleRecord) SetInfo(name, value string) {
	if value == "" {
		return
	}
	if r.Info == nil {
		r.Info = make(map[string]string)
	}
	r.Info[name] = value
}

// SearchResultCandidate is one image hit returned by a general image search.
// It never leaves the search fallback.
type SearchResultCandidate struct {
	ImageURL     string
	ThumbnailURL string
	SourceURL    string
	Title        string
}

// TextSearchResult is one web search hit, used for title synthesis.
type TextSearchResult struct {
	Title string
	URL   string
}
