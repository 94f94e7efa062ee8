// Package archive persists successful research results. Every backend stores
// the same human readable record produced by FormatRecord.
package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Protocol-Lattice/research-agent/src/concurrent"
)

// TimestampLayout is the timestamp format used inside records.
const TimestampLayout = "2006-01-02 15:04:05"

// Sink receives one record per successful turn.
type Sink interface {
	Save(ctx context.Context, text string) error
	Target() string
	Close() error
}

// FormatRecord renders text as an archive entry written at ts.
func FormatRecord(ts time.Time, text string) string {
	var b strings.Builder
	b.Grow(len(text) + 64)
	b.WriteString("--- Research Output ---\nTimestamp: ")
	b.WriteString(ts.Format(TimestampLayout))
	b.WriteString("\n\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	return b.String()
}

// MultiSink fans a record out to several sinks concurrently.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Save writes to every sink even when another one fails; the errors are
// joined in sink order.
func (m *MultiSink) Save(ctx context.Context, text string) error {
	return concurrent.ForEach(ctx, m.sinks, len(m.sinks), func(ctx context.Context, s Sink) error {
		return s.Save(ctx, text)
	})
}

func (m *MultiSink) Target() string {
	targets := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		targets[i] = s.Target()
	}
	return strings.Join(targets, ", ")
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Sinks() []Sink {
	return append([]Sink(nil), m.sinks...)
}
