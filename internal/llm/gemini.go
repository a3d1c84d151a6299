package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for creating a GeminiBackend.
type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	Timeout time.Duration
}

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend creates a Gemini backend. An API key is required.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiBackend{client: client}, nil
}

// Provider implements Backend.
func (g *GeminiBackend) Provider() string { return ProviderGemini }

// Probe sends a one-word prompt. Any non-error answer counts as alive.
func (g *GeminiBackend) Probe(ctx context.Context, model string) error {
	_, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)},
		&genai.GenerateContentConfig{MaxOutputTokens: 16, CandidateCount: 1},
	)
	if err != nil {
		return WrapError(err, model)
	}
	return nil
}

// Generate implements Backend.
func (g *GeminiBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	settings := SettingsFor(ProviderGemini, model)
	temperature := float32(settings.Temperature)
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: int32(settings.MaxTokens),
			CandidateCount:  1,
		},
	)
	if err != nil {
		return "", WrapError(err, model)
	}

	text := collectTextResponse(resp)
	if strings.TrimSpace(text) == "" {
		return "", ClassifyError(errors.New("empty response from model"), model, 0)
	}
	return text, nil
}

func collectTextResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}
