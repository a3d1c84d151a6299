package llm

import (
	"context"
	"strings"
)

// Provider names used as candidate prefixes.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// DefaultCandidates is the built-in ranked candidate list.
var DefaultCandidates = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}

// Backend is one text-generation service. A backend serves every candidate
// that names its provider.
type Backend interface {
	// Provider returns the provider name candidates are matched on.
	Provider() string
	// Probe performs a minimal liveness call against model.
	Probe(ctx context.Context, model string) error
	// Generate returns the raw text answer for prompt.
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Candidate is one ranked backend configuration.
type Candidate struct {
	// ID is the configured identifier, e.g. "gemini-2.5-flash" or
	// "openrouter:openai/gpt-4o-mini".
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Rank     int    `json:"rank"`
}

// ParseCandidate splits "provider:model" on the first colon. A bare name is
// a Gemini model.
func ParseCandidate(id string, rank int) Candidate {
	id = strings.TrimSpace(id)
	provider, model, ok := strings.Cut(id, ":")
	if !ok || provider == "" {
		return Candidate{ID: id, Provider: ProviderGemini, Model: strings.TrimPrefix(id, ":"), Rank: rank}
	}
	return Candidate{ID: id, Provider: strings.ToLower(provider), Model: model, Rank: rank}
}

// ParseCandidates converts a ranked identifier list, skipping blanks and
// duplicates.
func ParseCandidates(ids []string) []Candidate {
	out := make([]Candidate, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c := ParseCandidate(id, len(out))
		if c.Model == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
