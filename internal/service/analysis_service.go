// Package service contains the business logic layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jmylchreest/vincheck-api/internal/llm"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

// maxPromptField bounds each free-text section of the prompt.
const maxPromptField = 12000

// RecordResolver resolves free-form input into a vehicle record.
type RecordResolver interface {
	Resolve(ctx context.Context, raw string) (*models.VehicleRecord, error)
}

// Generator is the generation side of the analysis flow.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, llm.Candidate, error)
	GenerateWithFallback(ctx context.Context, prompt string, limit int) (string, llm.Candidate, error)
}

// AnalysisServiceConfig holds configuration for creating an AnalysisService.
type AnalysisServiceConfig struct {
	Resolver  RecordResolver
	Generator Generator
	// FallbackLimit > 0 switches generation to the capped per-request
	// fallback over the first FallbackLimit candidates.
	FallbackLimit int
	Logger        *slog.Logger
}

// AnalysisService produces structured listing assessments.
type AnalysisService struct {
	resolver      RecordResolver
	generator     Generator
	fallbackLimit int
	logger        *slog.Logger
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(cfg AnalysisServiceConfig) *AnalysisService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AnalysisService{
		resolver:      cfg.Resolver,
		generator:     cfg.Generator,
		fallbackLimit: cfg.FallbackLimit,
		logger:        cfg.Logger,
	}
}

// Enabled reports whether a generation backend credential is configured.
func (s *AnalysisService) Enabled() bool {
	return s.generator != nil && s.generator.Configured()
}

// AnalyzeText assesses pre-supplied listing text.
func (s *AnalysisService) AnalyzeText(ctx context.Context, req models.AnalysisRequest) (map[string]any, error) {
	if !s.Enabled() {
		return nil, llm.ErrNotConfigured
	}
	if strings.TrimSpace(req.ListingText) == "" && strings.TrimSpace(req.HistoryText) == "" {
		return nil, ErrEmptyListing
	}
	return s.analyze(ctx, BuildAnalysisPrompt(req))
}

// AnalyzeURL resolves a listing URL into a record and assesses it. Nothing is
// fetched when no backend is configured.
func (s *AnalysisService) AnalyzeURL(ctx context.Context, rawURL string) (map[string]any, error) {
	if !s.Enabled() {
		return nil, llm.ErrNotConfigured
	}
	if s.resolver == nil {
		return nil, errors.New("record resolver not configured")
	}

	record, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, BuildAnalysisPrompt(RecordToRequest(record, rawURL)))
}

// ErrEmptyListing is returned when neither listing nor history text is given.
var ErrEmptyListing = errors.New("listing text is empty")

func (s *AnalysisService) analyze(ctx context.Context, prompt string) (map[string]any, error) {
	var (
		text string
		cand llm.Candidate
		err  error
	)
	if s.fallbackLimit > 0 {
		text, cand, err = s.generator.GenerateWithFallback(ctx, prompt, s.fallbackLimit)
	} else {
		text, cand, err = s.generator.Generate(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	payload, err := llm.NormalizeResponse(text)
	if err != nil {
		s.logger.Warn("backend returned non-conforming payload",
			"candidate", cand.ID,
			"response_length", len(text),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("listing analyzed", "candidate", cand.ID, "score", payload["score"])
	return payload, nil
}

// RecordToRequest flattens a resolved record into analysis text.
func RecordToRequest(record *models.VehicleRecord, sourceURL string) models.AnalysisRequest {
	var listing strings.Builder
	listing.WriteString(record.Title)
	listing.WriteString("\n")

	keys := make([]string, 0, len(record.Info))
	for k := range record.Info {
		if k != models.InfoSource {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&listing, "%s: %s\n", k, record.Info[k])
	}
	fmt.Fprintf(&listing, "photos: %d\n", len(record.Images))

	var history strings.Builder
	if src := record.Info[models.InfoSource]; src != "" {
		fmt.Fprintf(&history, "Auction history source: %s\n", src)
	}
	if sourceURL != "" {
		fmt.Fprintf(&history, "Listing URL: %s\n", sourceURL)
	}

	return models.AnalysisRequest{
		ListingText: listing.String(),
		HistoryText: history.String(),
	}
}

// BuildAnalysisPrompt renders the fixed assessment prompt.
func BuildAnalysisPrompt(req models.AnalysisRequest) string {
	var sb strings.Builder

	sb.WriteString(`You are an experienced used-car inspector advising a buyer in Georgia who is considering a vehicle imported from a US auction.

## Listing
`)
	sb.WriteString(truncateField(strings.TrimSpace(req.ListingText)))
	sb.WriteString("\n\n## Auction / Damage History\n")
	if h := strings.TrimSpace(req.HistoryText); h != "" {
		sb.WriteString(truncateField(h))
	} else {
		sb.WriteString("(not provided)")
	}
	sb.WriteString("\n\n## Asking Price\n")
	if p := strings.TrimSpace(req.Price); p != "" {
		sb.WriteString(p)
	} else {
		sb.WriteString("(not provided)")
	}

	sb.WriteString(`

## Your Task

Assess how good a purchase this is. Consider damage severity, mileage, engine, repair cost versus price, and anything in the history that suggests hidden problems.

Respond with ONLY a JSON object, no markdown and no commentary:
{"score": <integer 0-100>, "verdict": "<short verdict in Georgian, e.g. კარგი, საშუალო, ცუდი>", "analysis": "<detailed analysis in Georgian>"}
`)
	return sb.String()
}

func truncateField(s string) string {
	if len(s) <= maxPromptField {
		return s
	}
	n := maxPromptField
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n[truncated]"
}
