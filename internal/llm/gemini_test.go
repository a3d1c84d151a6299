package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newGeminiTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "retired-model"):
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"models/retired-model is not found","status":"NOT_FOUND"}}`)
		case strings.Contains(r.URL.Path, "busy-model"):
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"`+"```json\\n"+`{\"score\":72,\"verdict\":\"საშუალო\"}`+"\\n```"+`"}]}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGeminiBackend(t *testing.T) {
	srv := newGeminiTestServer(t)
	defer srv.Close()

	ctx := context.Background()
	g, err := NewGeminiBackend(ctx, GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiBackend: %v", err)
	}
	if g.Provider() != ProviderGemini {
		t.Errorf("Provider() = %q", g.Provider())
	}

	if err := g.Probe(ctx, "gemini-2.5-flash"); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	text, err := g.Generate(ctx, "gemini-2.5-flash", "assess")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	payload, err := NormalizeResponse(text)
	if err != nil {
		t.Fatalf("NormalizeResponse(%q): %v", text, err)
	}
	if payload["verdict"] != "საშუალო" {
		t.Errorf("verdict = %v", payload["verdict"])
	}

	err = g.Probe(ctx, "retired-model")
	var be *BackendError
	if !errors.As(err, &be) || be.Category != "model_unsupported" {
		t.Errorf("retired model err = %v", err)
	}

	_, err = g.Generate(ctx, "busy-model", "assess")
	if !errors.As(err, &be) || be.Category != "rate_limit" {
		t.Errorf("busy model err = %v", err)
	}
}

func TestNewGeminiBackend_RequiresKey(t *testing.T) {
	if _, err := NewGeminiBackend(context.Background(), GeminiConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
