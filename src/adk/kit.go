// Package adk assembles a research assistant from configuration: model,
// archive, tools, agent runtime, session store and the conversation shell.
package adk

import (
	"context"
	"errors"
	"fmt"
	"time"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/archive"
	"github.com/Protocol-Lattice/research-agent/src/config"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/models"
	"github.com/Protocol-Lattice/research-agent/src/session"
	"github.com/Protocol-Lattice/research-agent/src/shell"
	"github.com/Protocol-Lattice/research-agent/src/tools"
)

// Kit holds every component of one assistant deployment. Components supplied
// through options are used as is and are not closed by Close.
type Kit struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Recorder
	Model   models.LLM
	Sink    archive.Sink
	Store   session.Store
	Tools   []agent.Tool
	Runtime *agent.Agent
	Shell   *shell.Shell

	closers []func() error
}

// New provisions the kit in dependency order. A failure part way through
// releases whatever was already opened.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Kit, error) {
	if cfg == nil {
		return nil, errors.New("adk: configuration is required")
	}
	k := &Kit{Config: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(k); err != nil {
			return nil, err
		}
	}
	if k.Logger == nil {
		k.Logger = logging.NewNop()
	}

	if err := k.bootstrap(ctx); err != nil {
		_ = k.Close()
		return nil, err
	}
	k.Logger.Info("research assistant ready", map[string]any{
		"provider": cfg.Model.Provider,
		"model":    cfg.Model.Name,
		"archive":  k.Sink.Target(),
		"session":  cfg.Session.Backend,
		"tools":    toolNames(k.Runtime.ToolSpecs()),
	})
	return k, nil
}

func (k *Kit) bootstrap(ctx context.Context) error {
	cfg := k.Config

	if k.Model == nil {
		llm, err := models.NewLLMProvider(ctx, models.ProviderOptions{
			Provider:     cfg.Model.Provider,
			Model:        cfg.Model.Name,
			PromptPrefix: cfg.Model.PromptPrefix,
			MaxTokens:    cfg.Model.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("model %s: %w", cfg.Model.Provider, err)
		}
		if c, ok := llm.(interface{ Close() error }); ok {
			k.closers = append(k.closers, c.Close)
		}
		k.Model = withTimeout(llm, cfg.Model.Timeout)
	}

	if k.Sink == nil {
		sink, err := archive.Open(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		k.Sink = sink
		k.closers = append(k.closers, sink.Close)
	}

	if k.Tools == nil {
		k.Tools = tools.Build(cfg.Tools, k.Sink)
	}

	rt, err := agent.New(agent.Options{
		Model:         k.Model,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		Tools:         k.Tools,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        k.Logger.With(map[string]any{"component": "runtime"}),
		OnToolCall:    k.Metrics.ToolCall,
	})
	if err != nil {
		return fmt.Errorf("agent runtime: %w", err)
	}
	k.Runtime = rt

	if k.Store == nil {
		store, err := session.Open(ctx, cfg.Session)
		if err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		k.Store = store
		if c, ok := store.(interface{ Close() error }); ok {
			k.closers = append(k.closers, c.Close)
		}
	}

	sh, err := shell.New(shell.Options{
		Runtime:  k.Runtime,
		Store:    k.Store,
		Sink:     k.Sink,
		Logger:   k.Logger.With(map[string]any{"component": "shell"}),
		Metrics:  k.Metrics,
		AutoSave: cfg.Shell.AutoSave,
	})
	if err != nil {
		return err
	}
	k.Shell = sh
	return nil
}

// Close releases the components the kit opened itself, newest first.
func (k *Kit) Close() error {
	var errs []error
	for i := len(k.closers) - 1; i >= 0; i-- {
		if err := k.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	k.closers = nil
	return errors.Join(errs...)
}

func toolNames(specs []agent.ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names
}

func withTimeout(llm models.LLM, d time.Duration) models.LLM {
	if d <= 0 {
		return llm
	}
	return models.Func(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return llm.Generate(ctx, prompt)
	})
}
