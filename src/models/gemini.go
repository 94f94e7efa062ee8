package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLLM talks to Google's Gemini models. It is the default provider.
type GeminiLLM struct {
	Client       *genai.Client
	Model        string
	PromptPrefix string
	MaxTokens    int32
}

func NewGeminiLLM(ctx context.Context, model, promptPrefix string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, PromptPrefix: promptPrefix}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	if g.MaxTokens > 0 {
		model.SetMaxOutputTokens(g.MaxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(withPrefix(strings.TrimSpace(g.PromptPrefix), prompt, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return b.String(), nil
}

func (g *GeminiLLM) Close() error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Close()
}
