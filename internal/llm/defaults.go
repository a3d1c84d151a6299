package llm

// ModelSettings are the sampling settings sent with a generation call.
type ModelSettings struct {
	Temperature float64
	MaxTokens   int
}

// ProviderDefaults contains default settings per provider.
var ProviderDefaults = map[string]ModelSettings{
	ProviderGemini:     {Temperature: 0.2, MaxTokens: 4096},
	ProviderOpenRouter: {Temperature: 0.2, MaxTokens: 4096},
}

// ModelOverrides replace the provider default for a specific model name.
// Gemini 2.5 models spend part of the output budget on thinking tokens.
var ModelOverrides = map[string]ModelSettings{
	"gemini-2.5-flash": {Temperature: 0.2, MaxTokens: 8192},
	"gemini-2.5-pro":   {Temperature: 0.2, MaxTokens: 8192},
}

var fallbackSettings = ModelSettings{Temperature: 0.2, MaxTokens: 4096}

// SettingsFor returns the settings for a model.
// Priority: model override > provider default > built-in fallback.
func SettingsFor(provider, model string) ModelSettings {
	if s, ok := ModelOverrides[model]; ok {
		return s
	}
	if s, ok := ProviderDefaults[provider]; ok {
		return s
	}
	return fallbackSettings
}
