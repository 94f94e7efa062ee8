package models

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	Client       *openai.Client
	Model        string
	PromptPrefix string
	MaxTokens    int
}

func NewOpenAILLM(model string, promptPrefix string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY") // fallback
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return NewOpenAILLMWithConfig(cfg, model, promptPrefix)
}

// NewOpenAILLMWithConfig is used for OpenAI compatible endpoints and tests.
func NewOpenAILLMWithConfig(cfg openai.ClientConfig, model, promptPrefix string) *OpenAILLM {
	return &OpenAILLM{Client: openai.NewClientWithConfig(cfg), Model: model, PromptPrefix: promptPrefix}
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: withPrefix(o.PromptPrefix, prompt, "\n"),
		}},
	}
	if o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}

	resp, err := o.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
