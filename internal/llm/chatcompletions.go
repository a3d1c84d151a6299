package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenRouterBaseURL is the OpenRouter OpenAI-compatible API root.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// ChatCompletionsConfig holds configuration for an OpenAI-compatible backend.
type ChatCompletionsConfig struct {
	// Provider is the candidate prefix this backend serves. Defaults to "openrouter".
	Provider string
	BaseURL  string
	APIKey   string
	// Referer and Title are sent as OpenRouter attribution headers.
	Referer string
	Title   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// ChatCompletionsBackend calls an OpenAI-compatible /chat/completions API.
type ChatCompletionsBackend struct {
	cfg    ChatCompletionsConfig
	client *http.Client
	logger *slog.Logger
}

// NewChatCompletionsBackend creates a chat-completions backend.
func NewChatCompletionsBackend(cfg ChatCompletionsConfig) *ChatCompletionsBackend {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenRouter
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ChatCompletionsBackend{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

// Provider implements Backend.
func (c *ChatCompletionsBackend) Provider() string { return c.cfg.Provider }

// Probe implements Backend with a one-token completion.
func (c *ChatCompletionsBackend) Probe(ctx context.Context, model string) error {
	_, err := c.call(ctx, model, "ping", ModelSettings{MaxTokens: 1})
	return err
}

// Generate implements Backend.
func (c *ChatCompletionsBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	return c.call(ctx, model, prompt, SettingsFor(c.cfg.Provider, model))
}

func (c *ChatCompletionsBackend) call(ctx context.Context, model, prompt string, settings ModelSettings) (string, error) {
	candidate := c.cfg.Provider + ":" + model
	if c.cfg.APIKey == "" {
		return "", ClassifyError(fmt.Errorf("no API key available for provider %s", c.cfg.Provider), candidate, http.StatusUnauthorized)
	}

	reqBody := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": settings.Temperature,
		"max_tokens":  settings.MaxTokens,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := c.cfg.BaseURL + "/chat/completions"
	c.logger.Debug("making chat completion request",
		"provider", c.cfg.Provider,
		"model", model,
		"prompt_length", len(prompt),
		"max_tokens", settings.MaxTokens,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", WrapError(fmt.Errorf("request failed: %w", err), candidate)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("chat completion API error",
			"provider", c.cfg.Provider,
			"model", model,
			"status_code", resp.StatusCode,
		)
		return "", ClassifyError(fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 500)), candidate, resp.StatusCode)
	}

	content, err := parseOpenAIFormat(body)
	if err != nil {
		return "", ClassifyError(err, candidate, 0)
	}
	return content, nil
}

// parseOpenAIFormat extracts the first choice's message content.
func parseOpenAIFormat(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse chat completion response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
