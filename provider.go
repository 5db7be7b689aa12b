package livellm

// Creds identifies one authentication and routing context at the gateway.
type Creds struct {
	APIKey string
	// Provider is the gateway's identifier of the upstream provider, e.g. "openai"
	Provider string
	// BaseURL optionally overrides the upstream provider's endpoint
	BaseURL string
}

// String returns the provider identifier and base URL; the API key is never included.
func (c Creds) String() string {
	if c.BaseURL == "" {
		return c.Provider
	}
	return c.Provider + "@" + c.BaseURL
}

// Model describes a model reachable through a provider.
// Names are unique within a provider, not across providers.
type Model struct {
	Name         string
	Capabilities CapabilitySet
}

// ProviderConfig holds the credentials of a provider and the models it serves.
type ProviderConfig struct {
	Creds  Creds
	Models []Model
}

// OpenAIProvider returns a ProviderConfig for OpenAI with its common chat, speech and
// transcription models. baseURL may be empty.
func OpenAIProvider(apiKey, baseURL string) ProviderConfig {
	return ProviderConfig{
		Creds: Creds{APIKey: apiKey, Provider: "openai", BaseURL: baseURL},
		Models: []Model{
			{Name: "gpt-5-mini"},
			{Name: "gpt-5-nano"},
			{Name: "gpt-5"},
			{Name: "gpt-4o", Capabilities: NewCapabilitySet(ImageAgent)},
			{Name: "gpt-4o-mini", Capabilities: NewCapabilitySet(ImageAgent)},
			{Name: "tts-1", Capabilities: NewCapabilitySet(Speak)},
			{Name: "tts-1-hd", Capabilities: NewCapabilitySet(Speak)},
			{Name: "whisper-1", Capabilities: NewCapabilitySet(Transcribe)},
		},
	}
}

// GoogleProvider returns a ProviderConfig for Google's Gemini models, which read images,
// video and audio.
func GoogleProvider(apiKey, baseURL string) ProviderConfig {
	gemini := NewCapabilitySet(ImageAgent, VideoAgent, AudioAgent)
	return ProviderConfig{
		Creds: Creds{APIKey: apiKey, Provider: "google", BaseURL: baseURL},
		Models: []Model{
			{Name: "gemini-2.5-flash-lite", Capabilities: gemini},
			{Name: "gemini-2.5-flash", Capabilities: gemini},
			{Name: "gemini-2.5-pro", Capabilities: gemini},
		},
	}
}

// ElevenLabsProvider returns a ProviderConfig for ElevenLabs speech and transcription models.
func ElevenLabsProvider(apiKey, baseURL string) ProviderConfig {
	return ProviderConfig{
		Creds: Creds{APIKey: apiKey, Provider: "elevenlabs", BaseURL: baseURL},
		Models: []Model{
			{Name: "elevenlabs_multilingual_v2", Capabilities: NewCapabilitySet(Speak)},
			{Name: "eleven_flash_v2_5", Capabilities: NewCapabilitySet(Speak)},
			{Name: "eleven_flash_v2", Capabilities: NewCapabilitySet(Speak)},
			{Name: "eleven_v3", Capabilities: NewCapabilitySet(Speak)},
			{Name: "scribe_v1", Capabilities: NewCapabilitySet(Transcribe)},
		},
	}
}

// AnthropicProvider returns a ProviderConfig for Anthropic's text-only Claude models.
func AnthropicProvider(apiKey, baseURL string) ProviderConfig {
	return ProviderConfig{
		Creds: Creds{APIKey: apiKey, Provider: "anthropic", BaseURL: baseURL},
		Models: []Model{
			{Name: "claude-sonnet-3.5"},
			{Name: "claude-sonnet-4.0"},
			{Name: "claude-sonnet-4.5"},
			{Name: "claude-haiku-4.5"},
		},
	}
}

// ProviderPreset returns the preset constructor for a provider identifier, as used by
// configuration files. ok is false for unknown identifiers.
func ProviderPreset(provider string) (preset func(apiKey, baseURL string) ProviderConfig, ok bool) {
	switch provider {
	case "openai":
		return OpenAIProvider, true
	case "google":
		return GoogleProvider, true
	case "elevenlabs":
		return ElevenLabsProvider, true
	case "anthropic":
		return AnthropicProvider, true
	}
	return nil, false
}
