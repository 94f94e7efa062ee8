// Package shell implements the conversation turn protocol shared by the CLI
// and the web chat.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/archive"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/research"
	"github.com/Protocol-Lattice/research-agent/src/session"
	"github.com/Protocol-Lattice/research-agent/src/tools"
)

var exitWords = map[string]bool{"/bye": true, "bye": true, "exit": true}

// IsExit reports whether input ends the conversation.
func IsExit(input string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(input))]
}

// Runtime is the agent boundary the shell drives.
type Runtime interface {
	Invoke(ctx context.Context, in agent.Input) (agent.Output, error)
}

// RuntimeError wraps a failure of the agent runtime. It ends the turn without
// a reply and is returned to the caller.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string { return "agent runtime: " + e.Err.Error() }
func (e *RuntimeError) Unwrap() error { return e.Err }

// TurnResult describes how one turn ended. Exactly one of Exit, Result or
// ParseErr is set.
type TurnResult struct {
	Exit     bool
	Result   *research.Result
	Rendered string
	Raw      string
	ParseErr *research.ParseError
	// SaveErr is set when the result was shown but could not be archived.
	SaveErr error
}

type Options struct {
	Runtime  Runtime
	Store    session.Store
	Sink     archive.Sink
	Parser   *research.Parser
	Logger   logging.Logger
	Metrics  *metrics.Recorder
	AutoSave bool
}

// Shell runs turns against one runtime. It keeps no per-session state of its
// own; history lives in the Store.
type Shell struct {
	runtime  Runtime
	store    session.Store
	sink     archive.Sink
	parser   *research.Parser
	logger   logging.Logger
	metrics  *metrics.Recorder
	autoSave bool
}

func New(opts Options) (*Shell, error) {
	if opts.Runtime == nil {
		return nil, errors.New("shell requires an agent runtime")
	}
	if opts.AutoSave && opts.Sink == nil {
		return nil, errors.New("shell requires an archive sink when auto save is on")
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore()
	}
	if opts.Parser == nil {
		p, err := research.NewParser()
		if err != nil {
			return nil, err
		}
		opts.Parser = p
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Shell{
		runtime:  opts.Runtime,
		store:    opts.Store,
		sink:     opts.Sink,
		parser:   opts.Parser,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		autoSave: opts.AutoSave,
	}, nil
}

// Turn handles one user message for sessionID. Parse failures are reported on
// the result; runtime failures come back as *RuntimeError.
func (s *Shell) Turn(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	log := s.logger.With(map[string]any{"session": sessionID})

	if IsExit(input) {
		s.metrics.Turn(metrics.OutcomeExit)
		log.Info("session ended by user", nil)
		return &TurnResult{Exit: true}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, sessionID, agent.Message{Role: agent.RoleUser, Content: input}); err != nil {
		return nil, fmt.Errorf("record user turn: %w", err)
	}
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	started := time.Now()
	out, err := s.runtime.Invoke(ctx, agent.Input{Query: input, ChatHistory: history, SessionID: sessionID})
	elapsed := time.Since(started)
	s.metrics.RuntimeDuration(elapsed)
	if err != nil {
		s.metrics.Turn(metrics.OutcomeRuntimeError)
		log.WithError(err).Error("agent runtime failed", map[string]any{"duration_ms": elapsed.Milliseconds()})
		return nil, &RuntimeError{Err: err}
	}

	result, err := s.parser.Parse(out.Output)
	if err != nil {
		var pe *research.ParseError
		if !errors.As(err, &pe) {
			pe = &research.ParseError{Reason: err.Error(), Raw: out.Output}
		}
		s.metrics.Turn(metrics.OutcomeParseError)
		log.Warn("model output did not match the response format", map[string]any{"reason": pe.Reason, "steps": len(out.Steps)})
		return &TurnResult{Raw: out.Output, ParseErr: pe}, nil
	}

	rendered := result.Render()
	turn := &TurnResult{Result: result, Rendered: rendered, Raw: out.Output}

	if s.autoSave {
		err := tools.Save(ctx, s.sink, rendered)
		s.metrics.Save(s.sink.Target(), err)
		if err != nil {
			turn.SaveErr = err
			log.WithError(err).Error("failed to archive research output", map[string]any{"target": s.sink.Target()})
		}
	}

	if err := s.store.Append(ctx, sessionID, agent.Message{Role: agent.RoleAssistant, Content: rendered}); err != nil {
		return nil, fmt.Errorf("record assistant turn: %w", err)
	}

	s.metrics.Turn(metrics.OutcomeParsed)
	log.Info("turn completed", map[string]any{
		"topic":       result.Topic,
		"steps":       len(out.Steps),
		"duration_ms": elapsed.Milliseconds(),
	})
	return turn, nil
}

// History exposes the stored conversation for sessionID.
func (s *Shell) History(ctx context.Context, sessionID string) ([]agent.Message, error) {
	return s.store.History(ctx, sessionID)
}

// Reset forgets the conversation for sessionID.
func (s *Shell) Reset(ctx context.Context, sessionID string) error {
	return s.store.Clear(ctx, sessionID)
}
