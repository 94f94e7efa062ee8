package adk

import (
	"errors"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/archive"
	"github.com/Protocol-Lattice/research-agent/src/logging"
	"github.com/Protocol-Lattice/research-agent/src/metrics"
	"github.com/Protocol-Lattice/research-agent/src/models"
	"github.com/Protocol-Lattice/research-agent/src/session"
)

// Option mutates the kit before it is bootstrapped.
type Option func(*Kit) error

func WithLogger(l logging.Logger) Option {
	return func(k *Kit) error {
		k.Logger = l
		return nil
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(k *Kit) error {
		k.Metrics = r
		return nil
	}
}

// WithModel skips provider construction and uses llm directly.
func WithModel(llm models.LLM) Option {
	return func(k *Kit) error {
		if llm == nil {
			return errors.New("adk: model cannot be nil")
		}
		k.Model = llm
		return nil
	}
}

func WithSink(s archive.Sink) Option {
	return func(k *Kit) error {
		if s == nil {
			return errors.New("adk: archive sink cannot be nil")
		}
		k.Sink = s
		return nil
	}
}

func WithStore(s session.Store) Option {
	return func(k *Kit) error {
		if s == nil {
			return errors.New("adk: session store cannot be nil")
		}
		k.Store = s
		return nil
	}
}

// WithTools replaces the configured tool set. An empty slice leaves the
// runtime without tools.
func WithTools(tools ...agent.Tool) Option {
	return func(k *Kit) error {
		k.Tools = append([]agent.Tool{}, tools...)
		return nil
	}
}
