package models

import (
	"context"
	"fmt"
	"strings"
)

// ProviderOptions selects and tunes a model backend.
type ProviderOptions struct {
	Provider     string
	Model        string
	PromptPrefix string
	MaxTokens    int
}

// NewLLMProvider returns a concrete LLM for the named provider.
func NewLLMProvider(ctx context.Context, opts ProviderOptions) (LLM, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "gemini", "google":
		g, err := NewGeminiLLM(ctx, opts.Model, opts.PromptPrefix)
		if err != nil {
			return nil, err
		}
		g.MaxTokens = int32(opts.MaxTokens)
		return g, nil
	case "openai":
		o := NewOpenAILLM(opts.Model, opts.PromptPrefix)
		o.MaxTokens = opts.MaxTokens
		return o, nil
	case "anthropic", "claude":
		a := NewAnthropicLLM(opts.Model, opts.PromptPrefix)
		if opts.MaxTokens > 0 {
			a.MaxTokens = opts.MaxTokens
		}
		return a, nil
	case "ollama":
		return NewOllamaLLM(opts.Model, opts.PromptPrefix)
	case "dummy":
		return NewDummyLLM(opts.PromptPrefix), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}
