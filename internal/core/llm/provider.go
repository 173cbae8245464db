package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingAPIKey means no credential is available for the selected
// provider. This is fatal to starting a chat; there is no retry.
var ErrMissingAPIKey = errors.New("missing LLM API key")

// Turn roles for prior conversation context.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of a user turn: text or inline image bytes.
type Part struct {
	Text      string
	ImageData string // base64-encoded bytes, no data-URL prefix
	ImageMIME string
}

// Turn is one prior exchange entry.
type Turn struct {
	Role string
	Text string
}

// ChatRequest is a chat-style completion request: system instructions,
// ordered turn history, and the new turn's parts. When ResponseSchema
// is set the provider must return JSON conforming to it.
type ChatRequest struct {
	System         string
	History        []Turn
	Parts          []Part
	ResponseSchema json.RawMessage
}

// PromptText concatenates the request's text for token estimation.
func (r *ChatRequest) PromptText() string {
	text := ""
	for _, p := range r.Parts {
		text += p.Text
	}
	return text
}

// Provider interface for multiple AI backends.
type Provider interface {
	GenerateChat(ctx context.Context, req *ChatRequest) (string, error)
	GetProviderName() string
}

// ProviderType for the factory.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

// ProviderConfig for creating a provider.
type ProviderConfig struct {
	Type ProviderType

	// API keys
	GeminiKey string
	OpenAIKey string

	// Model configs
	Model       string
	Temperature float32
	MaxTokens   int
}

// WithTenantKey returns a copy of the config using the per-tenant
// credential override in place of the shared default. An empty override
// leaves the config unchanged.
func (c ProviderConfig) WithTenantKey(key string) ProviderConfig {
	if key == "" {
		return c
	}
	switch c.Type {
	case ProviderGemini:
		c.GeminiKey = key
	case ProviderOpenAI:
		c.OpenAIKey = key
	}
	return c
}

// NewProvider factory.
func NewProvider(cfg *ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", ErrMissingAPIKey)
		}
		return NewGeminiProvider(cfg.GeminiKey, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil

	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", ErrMissingAPIKey)
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s", cfg.Type)
	}
}
