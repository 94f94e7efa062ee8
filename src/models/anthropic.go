package models

import (
	"context"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM uses the Messages API with a single user turn.
type AnthropicLLM struct {
	Client       *anthropic.Client
	Model        string
	MaxTokens    int
	PromptPrefix string
}

// NewAnthropicLLM reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicLLM(model, promptPrefix string, opts ...anthropicopt.RequestOption) *AnthropicLLM {
	opts = append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY"))}, opts...)
	cl := anthropic.NewClient(opts...)
	return &AnthropicLLM{
		Client:       &cl,
		Model:        model,
		MaxTokens:    1024,
		PromptPrefix: promptPrefix,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(withPrefix(a.PromptPrefix, prompt, "\n\n"))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return b.String(), nil
}
