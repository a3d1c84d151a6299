// Package llm selects a live text-generation backend from a ranked candidate
// list, invokes it, and normalizes its raw output into a structured payload.
package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNotConfigured means no backend credential is present. Analysis is
	// refused without any network call.
	ErrNotConfigured = errors.New("generation backend not configured")

	// ErrBackendUnavailable means every candidate failed its liveness probe.
	ErrBackendUnavailable = errors.New("no generation backend available")

	// ErrBackendInvocationFailed means the selected backend errored during a
	// live call. The selection is invalidated.
	ErrBackendInvocationFailed = errors.New("generation backend invocation failed")

	// ErrPayloadParse means the backend's text did not contain a parseable
	// JSON object.
	ErrPayloadParse = errors.New("backend response is not a JSON object")

	// ErrModelUnavailable indicates a specific model is unavailable.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInvalidAPIKey indicates the API key is invalid or expired.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrProviderError indicates a general provider error.
	ErrProviderError = errors.New("provider error")
)

// BackendError is a classified failure from one backend candidate.
type BackendError struct {
	// Original error from the provider
	Err error

	// HTTP status code (if known)
	StatusCode int

	// Candidate identifier, e.g. "gemini-2.5-flash" or "openrouter:openai/gpt-4o-mini"
	Candidate string

	// Raw error message for logs
	RawMessage string

	// Error category (rate_limit, invalid_key, model_unsupported, ...)
	Category string

	// Whether the same call may succeed if repeated later
	Retryable bool

	// Whether the next candidate should be tried
	ShouldFallback bool
}

func (e *BackendError) Error() string {
	msg := e.RawMessage
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown backend error"
	}
	if e.Candidate == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Candidate, msg)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ClassifyError analyzes an error from a backend call and returns a
// classified BackendError.
func ClassifyError(err error, candidate string, statusCode int) *BackendError {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	be := &BackendError{
		Err:        err,
		StatusCode: statusCode,
		Candidate:  candidate,
		RawMessage: err.Error(),
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		be.Category = "rate_limit"
		be.Retryable = true
		be.ShouldFallback = true

	case http.StatusPaymentRequired:
		be.Category = "quota_exceeded"
		be.ShouldFallback = true

	case http.StatusServiceUnavailable:
		be.Err = ErrModelUnavailable
		be.Category = "provider_error"
		be.Retryable = true
		be.ShouldFallback = true

	case http.StatusUnauthorized, http.StatusForbidden:
		be.Err = ErrInvalidAPIKey
		be.Category = "invalid_key"
		be.ShouldFallback = false

	case http.StatusNotFound:
		be.Err = ErrModelUnavailable
		be.Category = "model_unsupported"
		be.ShouldFallback = true

	case http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		be.Err = ErrProviderError
		be.Category = "provider_error"
		be.Retryable = true
		be.ShouldFallback = true

	default:
		be = classifyByErrorMessage(be, errStr)
	}

	return be
}

// classifyByErrorMessage analyzes error message content for specific patterns.
func classifyByErrorMessage(be *BackendError, errStr string) *BackendError {
	switch {
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "resource_exhausted") || strings.Contains(errStr, "quota"):
		be.Category = "rate_limit"
		be.Retryable = true
		be.ShouldFallback = true

	case strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "unavailable") || strings.Contains(errStr, "capacity"):
		be.Err = ErrModelUnavailable
		be.Category = "provider_error"
		be.Retryable = true
		be.ShouldFallback = true

	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "invalid model") || strings.Contains(errStr, "is not supported"):
		be.Err = ErrModelUnavailable
		be.Category = "model_unsupported"
		be.ShouldFallback = true

	case strings.Contains(errStr, "api key") || strings.Contains(errStr, "permission_denied") || strings.Contains(errStr, "authentication"):
		be.Err = ErrInvalidAPIKey
		be.Category = "invalid_key"
		be.ShouldFallback = false

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		be.Err = ErrProviderError
		be.Category = "timeout"
		be.Retryable = true
		be.ShouldFallback = true

	default:
		be.Err = ErrProviderError
		be.Category = "unknown"
		be.ShouldFallback = true
	}

	return be
}

// WrapError classifies a raw error, taking the status code from a genai
// APIError or from the message when one is present.
func WrapError(err error, candidate string) *BackendError {
	if err == nil {
		return nil
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	return ClassifyError(err, candidate, statusCodeOf(err))
}

func statusCodeOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return extractStatusCode(err.Error())
}

// extractStatusCode attempts to extract an HTTP status code from an error message.
func extractStatusCode(errMsg string) int {
	patterns := []struct {
		prefix string
		code   int
	}{
		{"status 429", http.StatusTooManyRequests},
		{"status 402", http.StatusPaymentRequired},
		{"status 401", http.StatusUnauthorized},
		{"status 403", http.StatusForbidden},
		{"status 404", http.StatusNotFound},
		{"status 503", http.StatusServiceUnavailable},
		{"status 502", http.StatusBadGateway},
		{"status 504", http.StatusGatewayTimeout},
		{"status 500", http.StatusInternalServerError},
		{"error 429", http.StatusTooManyRequests},
		{"error 503", http.StatusServiceUnavailable},
	}

	errLower := strings.ToLower(errMsg)
	for _, p := range patterns {
		if strings.Contains(errLower, p.prefix) {
			return p.code
		}
	}

	return 0
}
