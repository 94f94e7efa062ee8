package models

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
)

func TestDummyLLMDefaultPrefix(t *testing.T) {
	llm := NewDummyLLM("")
	got, err := llm.Generate(context.Background(), "line1\nline2")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "Dummy response: line2" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestDummyLLMHandlesEmptyPrompt(t *testing.T) {
	got, err := NewDummyLLM("Prefix").Generate(context.Background(), "\n\n\n")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "Prefix <empty prompt>" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestScriptedLLMReplaysInOrder(t *testing.T) {
	boom := errors.New("boom")
	llm := NewScriptedLLM("first", "second")
	llm.Push(Reply{Err: boom})

	for _, want := range []string{"first", "second"} {
		got, err := llm.Generate(context.Background(), "p-"+want)
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
	if _, err := llm.Generate(context.Background(), "p3"); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if _, err := llm.Generate(context.Background(), "p4"); !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("expected ErrScriptExhausted, got %v", err)
	}
	if prompts := llm.Prompts(); len(prompts) != 4 || prompts[0] != "p-first" {
		t.Fatalf("unexpected prompts: %v", prompts)
	}
}

func TestScriptedLLMHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewScriptedLLM("x").Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewLLMProviderErrorsOnUnknownProvider(t *testing.T) {
	if _, err := NewLLMProvider(context.Background(), ProviderOptions{Provider: "unknown", Model: "model"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewLLMProviderGeminiNeedsKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	if _, err := NewLLMProvider(context.Background(), ProviderOptions{Provider: "gemini", Model: "gemini-2.5-flash"}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestNewLLMProviderDummy(t *testing.T) {
	llm, err := NewLLMProvider(context.Background(), ProviderOptions{Provider: "Dummy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := llm.(*DummyLLM); !ok {
		t.Fatalf("expected *DummyLLM, got %T", llm)
	}
}

func TestOpenAILLMGenerate(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"topic\":\"x\"}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	llm := NewOpenAILLMWithConfig(cfg, "gpt-4o-mini", "PREFIX")

	got, err := llm.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != `{"topic":"x"}` {
		t.Fatalf("unexpected response: %q", got)
	}
	if gotPrompt != "PREFIX\nhello" {
		t.Fatalf("unexpected prompt: %q", gotPrompt)
	}
}

func TestOpenAILLMEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = srv.URL + "/v1"
	_, err := NewOpenAILLMWithConfig(cfg, "m", "").Generate(context.Background(), "hello")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAnthropicLLMGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude","content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`)
	}))
	defer srv.Close()

	llm := NewAnthropicLLM("claude", "", anthropicopt.WithBaseURL(srv.URL), anthropicopt.WithMaxRetries(0))
	got, err := llm.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "part one part two" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestOllamaLLMGenerateConcatenatesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"model":"llama3","response":"{\"topic\":","done":false}`+"\n")
		_, _ = io.WriteString(w, `{"model":"llama3","response":"\"x\"}","done":false}`+"\n")
		_, _ = io.WriteString(w, `{"model":"llama3","response":"","done":true,"done_reason":"stop"}`+"\n")
	}))
	defer srv.Close()

	llm, err := NewOllamaLLMWithHost(srv.URL, "llama3", "", srv.Client())
	if err != nil {
		t.Fatalf("NewOllamaLLMWithHost: %v", err)
	}
	got, err := llm.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != `{"topic":"x"}` {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestFuncAdapter(t *testing.T) {
	var llm LLM = Func(func(_ context.Context, prompt string) (string, error) {
		return strings.ToUpper(prompt), nil
	})
	got, _ := llm.Generate(context.Background(), "abc")
	if got != "ABC" {
		t.Fatalf("unexpected response: %q", got)
	}
}
