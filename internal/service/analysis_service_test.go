package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jmylchreest/vincheck-api/internal/llm"
	"github.com/jmylchreest/vincheck-api/internal/lookup"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

type stubGenerator struct {
	configured    bool
	response      string
	err           error
	calls         int
	fallbackCalls int
	lastLimit     int
	lastPrompt    string
}

func (g *stubGenerator) Configured() bool { return g.configured }

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, llm.Candidate, error) {
	g.calls++
	g.lastPrompt = prompt
	return g.response, llm.Candidate{ID: "gemini:test", Provider: llm.ProviderGemini, Model: "test"}, g.err
}

func (g *stubGenerator) GenerateWithFallback(_ context.Context, prompt string, limit int) (string, llm.Candidate, error) {
	g.fallbackCalls++
	g.lastLimit = limit
	g.lastPrompt = prompt
	return g.response, llm.Candidate{ID: "gemini:test", Provider: llm.ProviderGemini, Model: "test"}, g.err
}

type stubResolver struct {
	record *models.VehicleRecord
	err    error
	calls  int
}

func (r *stubResolver) Resolve(_ context.Context, _ string) (*models.VehicleRecord, error) {
	r.calls++
	return r.record, r.err
}

// ==== AnalyzeText Tests ====

func TestAnalyzeText_ReturnsPayloadUnchanged(t *testing.T) {
	gen := &stubGenerator{
		configured: true,
		response:   "```json\n{\"score\":72,\"verdict\":\"საშუალო\",\"analysis\":\"...\"}\n```",
	}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen})

	payload, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{
		ListingText: "2019 Toyota Camry SE, odometer 45,000 mi",
		Price:       "$9,500",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["score"] != json.Number("72") {
		t.Errorf("score = %#v, want 72", payload["score"])
	}
	if payload["verdict"] != "საშუალო" {
		t.Errorf("verdict = %v", payload["verdict"])
	}
	if payload["analysis"] != "..." {
		t.Errorf("analysis = %v", payload["analysis"])
	}
	if len(payload) != 3 {
		t.Errorf("payload has %d keys, want 3", len(payload))
	}
	if gen.calls != 1 || gen.fallbackCalls != 0 {
		t.Errorf("calls = %d/%d, want 1 selector call", gen.calls, gen.fallbackCalls)
	}
}

func TestAnalyzeText_NotConfiguredMakesNoCalls(t *testing.T) {
	gen := &stubGenerator{configured: false}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen})

	_, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{ListingText: "x"})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if gen.calls+gen.fallbackCalls != 0 {
		t.Errorf("generator called %d times", gen.calls+gen.fallbackCalls)
	}
}

func TestAnalyzeText_EmptyListing(t *testing.T) {
	gen := &stubGenerator{configured: true}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen})

	_, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{ListingText: "  "})
	if !errors.Is(err, ErrEmptyListing) {
		t.Errorf("err = %v, want ErrEmptyListing", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not be called for empty input")
	}
}

func TestAnalyzeText_NonConformingPayload(t *testing.T) {
	gen := &stubGenerator{configured: true, response: "I cannot assess this listing."}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen})

	_, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{ListingText: "x"})
	if !errors.Is(err, llm.ErrPayloadParse) {
		t.Errorf("err = %v, want ErrPayloadParse", err)
	}
}

func TestAnalyzeText_BackendErrorPropagates(t *testing.T) {
	gen := &stubGenerator{configured: true, err: llm.ErrBackendUnavailable}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen})

	_, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{ListingText: "x"})
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestAnalyzeText_FallbackLimitUsesCappedFallback(t *testing.T) {
	gen := &stubGenerator{configured: true, response: `{"score":10,"verdict":"ცუდი","analysis":"a"}`}
	svc := NewAnalysisService(AnalysisServiceConfig{Generator: gen, FallbackLimit: 3})

	if _, err := svc.AnalyzeText(context.Background(), models.AnalysisRequest{ListingText: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.fallbackCalls != 1 || gen.calls != 0 {
		t.Errorf("calls = %d/%d, want capped fallback only", gen.calls, gen.fallbackCalls)
	}
	if gen.lastLimit != 3 {
		t.Errorf("limit = %d, want 3", gen.lastLimit)
	}
}

// ==== AnalyzeURL Tests ====

func TestAnalyzeURL_NotConfiguredSkipsLookup(t *testing.T) {
	res := &stubResolver{}
	svc := NewAnalysisService(AnalysisServiceConfig{
		Resolver:  res,
		Generator: &stubGenerator{configured: false},
	})

	_, err := svc.AnalyzeURL(context.Background(), "https://www.copart.com/lot/12345678")
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if res.calls != 0 {
		t.Errorf("resolver called %d times, want 0", res.calls)
	}
}

func TestAnalyzeURL_ResolvesThenAnalyzes(t *testing.T) {
	res := &stubResolver{record: &models.VehicleRecord{
		Title:  "2018 HONDA CIVIC",
		Images: []string{"https://img.example/1.jpg"},
		Info: map[string]string{
			models.InfoOdometer: "45,000 mi",
			models.InfoDamage:   "Front End",
			models.InfoSource:   "bidfax",
		},
	}}
	gen := &stubGenerator{configured: true, response: `{"score":55,"verdict":"საშუალო","analysis":"ok"}`}
	svc := NewAnalysisService(AnalysisServiceConfig{Resolver: res, Generator: gen})

	payload, err := svc.AnalyzeURL(context.Background(), "https://www.copart.com/lot/12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["score"] != json.Number("55") {
		t.Errorf("score = %#v", payload["score"])
	}
	for _, want := range []string{"2018 HONDA CIVIC", "damage: Front End", "odometer: 45,000 mi", "bidfax"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyzeURL_LookupErrorPropagates(t *testing.T) {
	res := &stubResolver{err: lookup.ErrAllSourcesExhausted}
	gen := &stubGenerator{configured: true}
	svc := NewAnalysisService(AnalysisServiceConfig{Resolver: res, Generator: gen})

	_, err := svc.AnalyzeURL(context.Background(), "https://example.com/lot/12345678")
	if !errors.Is(err, lookup.ErrAllSourcesExhausted) {
		t.Errorf("err = %v, want ErrAllSourcesExhausted", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not run after a failed lookup")
	}
}

// ==== Prompt Tests ====

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := BuildAnalysisPrompt(models.AnalysisRequest{ListingText: "listing body"})

	for _, want := range []string{"## Listing", "listing body", "## Asking Price", "(not provided)", `"score"`, "Georgian"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestTruncateField(t *testing.T) {
	long := strings.Repeat("ა", maxPromptField)
	got := truncateField(long)
	if !strings.HasSuffix(got, "[truncated]") {
		t.Error("expected truncation marker")
	}
	body := strings.TrimSuffix(got, "\n[truncated]")
	if !strings.HasPrefix(long, body) {
		t.Error("truncated body is not a prefix of the input")
	}
	if !utf8.ValidString(body) {
		t.Error("truncation split a rune")
	}
}
