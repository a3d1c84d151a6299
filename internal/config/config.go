// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults shared with the CLI.
var (
	DefaultGenerationModels = []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"}
	DefaultLookupProviders  = []string{"autoastat", "bidfax", "statvin", "poctra"}
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port      int
	BaseURL   string
	StaticDir string

	// Generation backends
	GoogleAPIKey          string
	OpenRouterAPIKey      string
	OpenRouterBaseURL     string
	GenerationModels      []string
	AnalysisFallbackLimit int
	ProbeTimeout          time.Duration

	// Lookup
	LookupProviders []string
	LookupMaxImages int
	UpstreamTimeout time.Duration
	UserAgent       string
	BraveAPIKey     string

	// Request handling
	RequestTimeout     time.Duration
	AnalysisTimeout    time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int
	// IdleTimeout stops the server after a quiet period (0 = disabled)
	IdleTimeout time.Duration

	// Object storage for catalog overrides (Tigris/S3-compatible)
	StorageEnabled   bool
	StorageEndpoint  string // AWS_ENDPOINT_URL_S3
	StorageAccessKey string // AWS_ACCESS_KEY_ID
	StorageSecretKey string // AWS_SECRET_ACCESS_KEY
	StorageRegion    string
	ConfigBucket     string
	ConfigKey        string
	CatalogTTL       time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnvInt("PORT", 8000),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8000"),
		StaticDir: getEnv("STATIC_DIR", "static"),

		GoogleAPIKey:          getEnvWithFallback("GOOGLE_API_KEY", "GEMINI_API_KEY", ""),
		OpenRouterAPIKey:      getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:     getEnv("OPENROUTER_BASE_URL", ""),
		GenerationModels:      getEnvSlice("GENERATION_MODELS", DefaultGenerationModels),
		AnalysisFallbackLimit: getEnvInt("ANALYSIS_FALLBACK_LIMIT", 0),
		ProbeTimeout:          getEnvDuration("PROBE_TIMEOUT", 20*time.Second),

		LookupProviders: getEnvSlice("LOOKUP_PROVIDERS", DefaultLookupProviders),
		LookupMaxImages: getEnvInt("LOOKUP_MAX_IMAGES", 8),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		UserAgent:       getEnv("USER_AGENT", ""),
		BraveAPIKey:     getEnv("BRAVE_API_KEY", ""),

		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		AnalysisTimeout:    getEnvDuration("ANALYSIS_TIMEOUT", 180*time.Second),
		CORSOrigins:        getEnvSlice("CORS_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		IdleTimeout:        getEnvDuration("IDLE_TIMEOUT", 0),

		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
		ConfigBucket:     getEnvWithFallback("CONFIG_BUCKET", "BUCKET_NAME", ""),
		ConfigKey:        getEnv("CONFIG_KEY", "config/catalog.json"),
		CatalogTTL:       getEnvDuration("CATALOG_TTL", 5*time.Minute),
	}

	// Enable catalog overrides only when a bucket is configured
	cfg.StorageEnabled = cfg.ConfigBucket != ""

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.AnalysisFallbackLimit < 0 {
		return nil, fmt.Errorf("ANALYSIS_FALLBACK_LIMIT must not be negative, got %d", cfg.AnalysisFallbackLimit)
	}

	return cfg, nil
}

// AnalysisEnabled reports whether any generation credential is present.
func (c *Config) AnalysisEnabled() bool {
	return c.GoogleAPIKey != "" || c.OpenRouterAPIKey != ""
}

// SearchEnabled reports whether the search fallback has a credential.
func (c *Config) SearchEnabled() bool {
	return c.BraveAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvSlice splits a comma-separated value, trimming blanks.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	if value := os.Getenv(fallback); value != "" {
		return value
	}
	return defaultValue
}
