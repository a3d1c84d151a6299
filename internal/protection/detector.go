// Package protection detects bot protection and anti-scraping responses from
// upstream vehicle sources, so a rejected fetch can be told apart from a clean
// empty result.
package protection

import (
	"net/http"
	"strings"
)

// SignalType identifies the type of protection detected.
type SignalType string

const (
	SignalNone         SignalType = ""
	SignalCloudflare   SignalType = "cloudflare"
	SignalCaptcha      SignalType = "captcha"
	SignalAccessDenied SignalType = "access_denied"
	SignalRateLimited  SignalType = "rate_limited"
)

// DetectionResult contains the result of protection detection.
type DetectionResult struct {
	// Detected is true if any protection signal was found.
	Detected bool

	// Signal identifies the type of protection detected.
	Signal SignalType

	// Confidence is a score from 0-100 indicating detection confidence.
	Confidence int

	// Description provides a human-readable explanation.
	Description string
}

// Detector analyzes HTTP responses for bot protection signals.
type Detector struct {
	// ChallengeMaxBytes bounds the body size at which captcha and
	// access-denied phrases are trusted. Real record pages are larger and may
	// legitimately mention these words (contact forms, footers).
	ChallengeMaxBytes int
}

// NewDetector creates a new protection detector with default settings.
func NewDetector() *Detector {
	return &Detector{
		ChallengeMaxBytes: 16 * 1024,
	}
}

// DetectFromResponse analyzes an HTTP response for protection signals.
func (d *Detector) DetectFromResponse(statusCode int, headers http.Header, body []byte) DetectionResult {
	if result := d.checkStatusCode(statusCode); result.Detected {
		return result
	}
	if result := d.checkHeaders(headers); result.Detected {
		return result
	}
	return d.checkBodyContent(body)
}

// IsBlockStatus reports whether a status code on its own means the request
// was rejected rather than answered.
func IsBlockStatus(statusCode int) bool {
	return statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests
}

func (d *Detector) checkStatusCode(statusCode int) DetectionResult {
	switch statusCode {
	case http.StatusForbidden:
		return DetectionResult{
			Detected:    true,
			Signal:      SignalAccessDenied,
			Confidence:  90,
			Description: "Access denied (HTTP 403) - site may be blocking automated requests",
		}
	case http.StatusTooManyRequests:
		return DetectionResult{
			Detected:    true,
			Signal:      SignalRateLimited,
			Confidence:  95,
			Description: "Rate limited (HTTP 429) - too many requests",
		}
	}
	return DetectionResult{}
}

func (d *Detector) checkHeaders(headers http.Header) DetectionResult {
	if headers == nil {
		return DetectionResult{}
	}
	if headers.Get("cf-ray") != "" && headers.Get("cf-mitigated") == "challenge" {
		return DetectionResult{
			Detected:    true,
			Signal:      SignalCloudflare,
			Confidence:  95,
			Description: "Cloudflare challenge detected",
		}
	}
	return DetectionResult{}
}

var (
	cloudflarePatterns = []string{
		"cf-browser-verification",
		"challenge-platform",
		"cf_chl_opt",
		"_cf_chl",
		"checking your browser",
		"please wait... | cloudflare",
		"attention required! | cloudflare",
	}

	captchaPatterns = []string{
		"g-recaptcha",
		"h-captcha",
		"cf-turnstile",
		"captcha-container",
	}

	accessDeniedPatterns = []string{
		"access denied",
		"access to this page has been denied",
		"request blocked",
		"bot detected",
		"please verify you are human",
		"are you a robot",
	}
)

func (d *Detector) checkBodyContent(body []byte) DetectionResult {
	if len(body) == 0 {
		return DetectionResult{}
	}
	content := strings.ToLower(string(body))

	for _, pattern := range cloudflarePatterns {
		if strings.Contains(content, pattern) {
			return DetectionResult{
				Detected:    true,
				Signal:      SignalCloudflare,
				Confidence:  90,
				Description: "Cloudflare challenge page detected",
			}
		}
	}

	if d.ChallengeMaxBytes > 0 && len(body) > d.ChallengeMaxBytes {
		return DetectionResult{}
	}

	for _, pattern := range captchaPatterns {
		if strings.Contains(content, pattern) {
			return DetectionResult{
				Detected:    true,
				Signal:      SignalCaptcha,
				Confidence:  85,
				Description: "Captcha challenge detected",
			}
		}
	}

	for _, pattern := range accessDeniedPatterns {
		if strings.Contains(content, pattern) {
			return DetectionResult{
				Detected:    true,
				Signal:      SignalAccessDenied,
				Confidence:  80,
				Description: "Access denied message detected",
			}
		}
	}

	return DetectionResult{}
}

// Reason returns a short machine-friendly reason for logs and miss records.
func (r DetectionResult) Reason() string {
	if !r.Detected {
		return ""
	}
	return string(r.Signal) + ": " + r.Description
}
