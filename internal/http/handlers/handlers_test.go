package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/jmylchreest/vincheck-api/internal/chain"
	"github.com/jmylchreest/vincheck-api/internal/config"
	"github.com/jmylchreest/vincheck-api/internal/llm"
	"github.com/jmylchreest/vincheck-api/internal/lookup"
	"github.com/jmylchreest/vincheck-api/internal/models"
)

type stubResolver struct {
	record *models.VehicleRecord
	err    error
	inputs []string
}

func (s *stubResolver) Resolve(_ context.Context, raw string) (*models.VehicleRecord, error) {
	s.inputs = append(s.inputs, raw)
	return s.record, s.err
}

type stubAnalyzer struct {
	payload map[string]any
	err     error
	text    []models.AnalysisRequest
	urls    []string
}

func (s *stubAnalyzer) AnalyzeText(_ context.Context, req models.AnalysisRequest) (map[string]any, error) {
	s.text = append(s.text, req)
	return s.payload, s.err
}

func (s *stubAnalyzer) AnalyzeURL(_ context.Context, url string) (map[string]any, error) {
	s.urls = append(s.urls, url)
	return s.payload, s.err
}

func newTestAPI(t *testing.T, resolver RecordResolver, analyzer Analyzer) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)

	lh := NewLookupHandler(resolver, nil)
	ah := NewAnalysisHandler(analyzer, nil)
	huma.Post(api, "/check_vin", lh.CheckVIN)
	huma.Post(api, "/analyze", ah.Analyze)
	huma.Post(api, "/scrape_and_analyze", ah.ScrapeAndAnalyze)
	return api
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("invalid JSON body %q: %v", body, err)
	}
	return m
}

// ========================================
// CheckVIN Tests
// ========================================

func TestCheckVIN_Success(t *testing.T) {
	res := &stubResolver{record: &models.VehicleRecord{
		Title:  "2019 TOYOTA CAMRY",
		Images: []string{"https://img.example/1.jpg"},
		Info:   map[string]string{models.InfoOdometer: "45,000 mi"},
	}}
	api := newTestAPI(t, res, &stubAnalyzer{})

	resp := api.Post("/check_vin", map[string]any{"vin": "4T1B11HK5KU123456"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	body := decodeBody(t, resp.Body.String())
	if body["title"] != "2019 TOYOTA CAMRY" {
		t.Errorf("title = %v", body["title"])
	}
	if _, ok := body["error"]; ok {
		t.Error("success body must not carry an error key")
	}
	if len(res.inputs) != 1 || res.inputs[0] != "4T1B11HK5KU123456" {
		t.Errorf("resolver inputs = %v", res.inputs)
	}
}

func TestCheckVIN_EmptyImagesRenderAsArray(t *testing.T) {
	api := newTestAPI(t, &stubResolver{record: &models.VehicleRecord{Title: "x"}}, &stubAnalyzer{})

	resp := api.Post("/check_vin", map[string]any{"vin": "12345678"})
	if !strings.Contains(resp.Body.String(), `"images":[]`) || !strings.Contains(resp.Body.String(), `"info":{}`) {
		t.Errorf("body = %s, want empty images and info", resp.Body.String())
	}
}

func TestCheckVIN_ErrorsAreLocalized200(t *testing.T) {
	exhausted := fmt.Errorf("%w: %w", lookup.ErrAllSourcesExhausted, &chain.ExhaustedError{Misses: []chain.MissRecord{
		{Strategy: "autoastat", Kind: lookup.MissNotFound},
		{Strategy: "search", Kind: lookup.MissError},
	}})
	blocked := fmt.Errorf("%w: %w", lookup.ErrAllSourcesExhausted, &chain.ExhaustedError{Misses: []chain.MissRecord{
		{Strategy: "autoastat", Kind: lookup.MissBlocked},
		{Strategy: "search", Kind: lookup.MissError},
	}})

	tests := []struct {
		name   string
		err    error
		header string
		want   string
	}{
		{"not found georgian default", exhausted, "", "მანქანა ბაზაში ვერ მოიძებნა 🤷‍♂️"},
		{"not found english", exhausted, "Accept-Language: en-US,en;q=0.9", "Vehicle not found in any source"},
		{"all blocked", blocked, "", "საიტმა არ გვიპასუხა"},
		{"no identifier", lookup.ErrIdentifierNotFound, "Accept-Language: en", "Could not find a VIN or lot number in the input"},
		{"unsupported language falls back", lookup.ErrIdentifierNotFound, "Accept-Language: fr", "VIN კოდი ან ლოტის ნომერი ვერ ამოვიცანი"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, &stubResolver{err: tt.err}, &stubAnalyzer{})

			args := []any{map[string]any{"vin": "whatever"}}
			if tt.header != "" {
				args = append([]any{tt.header}, args...)
			}
			resp := api.Post("/check_vin", args...)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.Code)
			}
			body := decodeBody(t, resp.Body.String())
			if body["error"] != tt.want {
				t.Errorf("error = %v, want %q", body["error"], tt.want)
			}
			if _, ok := body["title"]; ok {
				t.Error("error body must not carry record fields")
			}
		})
	}
}

func TestOversizedInputsStay200(t *testing.T) {
	long := strings.Repeat("a", 5000)
	api := newTestAPI(t,
		&stubResolver{err: lookup.ErrIdentifierNotFound},
		&stubAnalyzer{err: fmt.Errorf("%w: 500", llm.ErrBackendInvocationFailed)},
	)

	tests := []struct {
		path string
		body map[string]any
	}{
		{"/check_vin", map[string]any{"vin": long}},
		{"/scrape_and_analyze", map[string]any{"url": "https://x.com/lot/" + long}},
		{"/analyze", map[string]any{"listingText": strings.Repeat(long, 30), "price": long}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := api.Post(tt.path, "Accept-Language: en", tt.body)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.Code)
			}
			if body := decodeBody(t, resp.Body.String()); body["error"] == nil {
				t.Errorf("body = %v, want a localized error", body)
			}
		})
	}
}

// ========================================
// Analysis Tests
// ========================================

func TestAnalyze_PassesPayloadThrough(t *testing.T) {
	an := &stubAnalyzer{payload: map[string]any{"score": json.Number("72"), "verdict": "საშუალო", "analysis": "..."}}
	api := newTestAPI(t, &stubResolver{}, an)

	resp := api.Post("/analyze", map[string]any{"listingText": "2019 Camry", "historyText": "front damage", "price": "$9,500"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	body := decodeBody(t, resp.Body.String())
	if body["score"] != float64(72) || body["verdict"] != "საშუალო" || body["analysis"] != "..." {
		t.Errorf("body = %v", body)
	}
	if len(an.text) != 1 || an.text[0].Price != "$9,500" || an.text[0].HistoryText != "front damage" {
		t.Errorf("analyzer received %+v", an.text)
	}
}

func TestAnalyze_MissingFieldsReachService(t *testing.T) {
	an := &stubAnalyzer{err: errors.New("unused")}
	api := newTestAPI(t, &stubResolver{}, an)

	resp := api.Post("/analyze", map[string]any{"listingText": "only listing"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, optional fields should not fail validation", resp.Code)
	}
	if len(an.text) != 1 {
		t.Errorf("analyzer calls = %d, want 1", len(an.text))
	}
}

func TestAnalysis_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		path string
		body map[string]any
		want string
	}{
		{"not configured", llm.ErrNotConfigured, "/analyze", map[string]any{"listingText": "x"}, "Analysis is unavailable: no AI credential is configured"},
		{"backend unavailable", fmt.Errorf("%w: probe", llm.ErrBackendUnavailable), "/scrape_and_analyze", map[string]any{"url": "https://x/lot/12345678"}, "The AI service is temporarily unavailable"},
		{"parse error", fmt.Errorf("%w: no JSON", llm.ErrPayloadParse), "/analyze", map[string]any{"listingText": "x"}, "The AI returned an unreadable answer, please try again"},
		{"invocation failed", fmt.Errorf("%w: 500", llm.ErrBackendInvocationFailed), "/analyze", map[string]any{"listingText": "x"}, "Analysis failed, please try again"},
		{"deadline", context.DeadlineExceeded, "/scrape_and_analyze", map[string]any{"url": "u"}, "The request timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, &stubResolver{}, &stubAnalyzer{err: tt.err})

			resp := api.Post(tt.path, "Accept-Language: en", tt.body)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.Code)
			}
			body := decodeBody(t, resp.Body.String())
			if body["error"] != tt.want {
				t.Errorf("error = %v, want %q", body["error"], tt.want)
			}
			if len(body) != 1 {
				t.Errorf("error body has extra keys: %v", body)
			}
		})
	}
}

func TestScrapeAndAnalyze_ForwardsURL(t *testing.T) {
	an := &stubAnalyzer{payload: map[string]any{"score": 10}}
	api := newTestAPI(t, &stubResolver{}, an)

	api.Post("/scrape_and_analyze", map[string]any{"url": "https://www.copart.com/lot/12345678"})
	if len(an.urls) != 1 || an.urls[0] != "https://www.copart.com/lot/12345678" {
		t.Errorf("analyzer urls = %v", an.urls)
	}
}

// ========================================
// Localize / MessageFor Tests
// ========================================

func TestLocalize(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "შიდა შეცდომა"},
		{"ka", "შიდა შეცდომა"},
		{"ka-GE,en;q=0.5", "შიდა შეცდომა"},
		{"en", "Internal error"},
		{"en-GB", "Internal error"},
		{"de,en;q=0.8", "Internal error"},
		{"ru", "შიდა შეცდომა"},
	}
	for _, tt := range tests {
		if got := Localize(tt.header, MsgInternal); got != tt.want {
			t.Errorf("Localize(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		err  error
		want Message
	}{
		{lookup.ErrIdentifierNotFound, MsgIdentifierNotFound},
		{lookup.ErrAllSourcesExhausted, MsgVehicleNotFound},
		{llm.ErrNotConfigured, MsgAnalysisDisabled},
		{context.Canceled, MsgTimeout},
		{errors.New("something else"), MsgInternal},
	}
	for _, tt := range tests {
		if got := MessageFor(tt.err); got != tt.want {
			t.Errorf("MessageFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// ========================================
// Health Tests
// ========================================

type stubHealth struct {
	analysis, search bool
	strategies       int
}

func (s stubHealth) AnalysisEnabled() bool       { return s.analysis }
func (s stubHealth) SearchFallbackEnabled() bool { return s.search }
func (s stubHealth) LookupStrategies() int       { return s.strategies }

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(stubHealth{analysis: true, strategies: 5})
	out, err := h.HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Body.Status != "healthy" || !out.Body.AnalysisEnabled || out.Body.FallbackEnabled || out.Body.LookupStrategies != 5 {
		t.Errorf("unexpected body: %+v", out.Body)
	}
	if out.Body.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestLivez(t *testing.T) {
	out, err := Livez(context.Background(), nil)
	if err != nil || out.Body.Status != "ok" {
		t.Errorf("Livez() = %+v, %v", out, err)
	}
}

func TestReadyz(t *testing.T) {
	ready, _ := NewHealthHandler(stubHealth{strategies: 1}).Readyz(context.Background(), nil)
	if ready.Body.Status != "ok" {
		t.Errorf("Status = %q, want ok", ready.Body.Status)
	}
	notReady, _ := NewHealthHandler(stubHealth{}).Readyz(context.Background(), nil)
	if notReady.Body.Status != "not_ready" {
		t.Errorf("Status = %q, want not_ready", notReady.Body.Status)
	}
}

// ========================================
// Backends Tests
// ========================================

type stubStatus struct{ st llm.Status }

func (s stubStatus) Status() llm.Status { return s.st }

type stubCatalog struct{ stats config.S3LoaderStats }

func (s stubCatalog) Stats() config.S3LoaderStats { return s.stats }

func TestGetBackends(t *testing.T) {
	active := llm.Candidate{ID: "gemini:gemini-2.5-flash", Provider: llm.ProviderGemini, Model: "gemini-2.5-flash"}
	h := NewBackendsHandler(stubStatus{st: llm.Status{
		State:      llm.StateSelected,
		Configured: true,
		Active:     &active,
		Candidates: []llm.Candidate{active},
	}}, stubCatalog{stats: config.S3LoaderStats{Enabled: true, Initialized: true, Etag: `"abc"`}})

	out, err := h.GetBackends(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Body.State != llm.StateSelected || out.Body.Active.ID != active.ID {
		t.Errorf("unexpected status: %+v", out.Body)
	}
	if out.Body.Catalog == nil || !out.Body.Catalog.Initialized || out.Body.Catalog.Etag != `"abc"` {
		t.Errorf("Catalog = %+v", out.Body.Catalog)
	}

	bare, _ := NewBackendsHandler(stubStatus{}, nil).GetBackends(context.Background(), nil)
	if bare.Body.Catalog != nil {
		t.Errorf("Catalog = %+v, want nil without a catalog", bare.Body.Catalog)
	}
}

// ========================================
// RateLimited Tests
// ========================================

func TestRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/check_vin", nil)
	req.Header.Set("Accept-Language", "en")
	RateLimited(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec.Body.String()); body["error"] != "Too many requests, please try again later" {
		t.Errorf("body = %v", body)
	}
}
