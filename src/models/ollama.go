package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

type OllamaLLM struct {
	Client       *ollama.Client
	Model        string
	PromptPrefix string
}

// NewOllamaLLM connects to OLLAMA_HOST, defaulting to the local daemon.
func NewOllamaLLM(model string, promptPrefix string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	return NewOllamaLLMWithHost(host, model, promptPrefix, &http.Client{Timeout: 120 * time.Second})
}

func NewOllamaLLMWithHost(host, model, promptPrefix string, httpClient *http.Client) (*OllamaLLM, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaLLM{
		Client:       ollama.NewClient(u, httpClient),
		Model:        model,
		PromptPrefix: promptPrefix,
	}, nil
}

// Generate collects the streamed chunks into one reply.
func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	req := &ollama.GenerateRequest{
		Model:  o.Model,
		Prompt: withPrefix(o.PromptPrefix, prompt, "\n\n"),
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}
