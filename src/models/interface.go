package models

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// LLM is a text-in, text-out language model.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the LLM interface.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func withPrefix(prefix, prompt, sep string) string {
	if prefix == "" {
		return prompt
	}
	return prefix + sep + prompt
}
