package handlers

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/vincheck-api/internal/logging"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

// Analyzer produces structured listing assessments.
type Analyzer interface {
	AnalyzeText(ctx context.Context, req models.AnalysisRequest) (map[string]any, error)
	AnalyzeURL(ctx context.Context, url string) (map[string]any, error)
}

// AnalysisHandler handles listing analysis endpoints.
type AnalysisHandler struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analyzer Analyzer, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{analyzer: analyzer, logger: logger}
}

// AnalyzeInput represents an analysis request over pre-supplied text.
type AnalyzeInput struct {
	AcceptLanguage string `header:"Accept-Language" doc:"ka (default) or en"`
	Body           models.AnalysisRequest
}

// ScrapeAndAnalyzeInput represents an analysis request over a listing URL.
type ScrapeAndAnalyzeInput struct {
	AcceptLanguage string `header:"Accept-Language" doc:"ka (default) or en"`
	Body           struct {
		URL string `json:"url" required:"false" doc:"Listing URL; the VIN or record ID is extracted from it"`
	}
}

// AnalysisOutput carries the backend's parsed JSON object unchanged
// ({score, verdict, analysis}) or {"error": "..."}.
type AnalysisOutput struct {
	Body map[string]any
}

// Analyze assesses pre-supplied listing, history and price text.
func (h *AnalysisHandler) Analyze(ctx context.Context, input *AnalyzeInput) (*AnalysisOutput, error) {
	payload, err := h.analyzer.AnalyzeText(ctx, input.Body)
	return h.respond(ctx, input.AcceptLanguage, payload, err), nil
}

// ScrapeAndAnalyze resolves the listing behind a URL and assesses it.
func (h *AnalysisHandler) ScrapeAndAnalyze(ctx context.Context, input *ScrapeAndAnalyzeInput) (*AnalysisOutput, error) {
	payload, err := h.analyzer.AnalyzeURL(ctx, input.Body.URL)
	return h.respond(ctx, input.AcceptLanguage, payload, err), nil
}

func (h *AnalysisHandler) respond(ctx context.Context, acceptLanguage string, payload map[string]any, err error) *AnalysisOutput {
	if err != nil {
		msg := MessageFor(err)
		logging.FromContext(ctx, h.logger).Warn("analysis failed", "message", msg, "error", err)
		return &AnalysisOutput{Body: map[string]any{"error": Localize(acceptLanguage, msg)}}
	}
	return &AnalysisOutput{Body: payload}
}
