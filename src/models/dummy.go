package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DummyLLM is a lightweight model implementation useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Generate echoes the last non-blank line of the prompt.
func (d *DummyLLM) Generate(_ context.Context, prompt string) (string, error) {
	lines := strings.Split(prompt, "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if candidate != "" {
			last = candidate
			break
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	return fmt.Sprintf("%s %s", d.Prefix, last), nil
}

// ErrScriptExhausted is returned once a ScriptedLLM has no replies left.
var ErrScriptExhausted = errors.New("scripted model has no replies left")

// ScriptedLLM replays canned replies in order and records every prompt it saw.
// Tests use it to drive the runtime deterministically.
type ScriptedLLM struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// Reply is one scripted answer. A non-nil Err is returned instead of Text.
type Reply struct {
	Text string
	Err  error
}

func NewScriptedLLM(replies ...string) *ScriptedLLM {
	s := &ScriptedLLM{}
	for _, r := range replies {
		s.replies = append(s.replies, Reply{Text: r})
	}
	return s
}

// Push appends replies to the script.
func (s *ScriptedLLM) Push(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

func (s *ScriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", ErrScriptExhausted
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	if next.Err != nil {
		return "", next.Err
	}
	return next.Text, nil
}

// Prompts returns a copy of the prompts received so far.
func (s *ScriptedLLM) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

var (
	_ LLM = (*DummyLLM)(nil)
	_ LLM = (*ScriptedLLM)(nil)
)
