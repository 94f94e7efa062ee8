package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the structured logging surface shared by the runtime, tools and shell.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	With(fields map[string]any) Logger
	WithError(err error) Logger
}

// NewZap builds a zap logger for the given level ("debug", "info", "warn", "error")
// and format ("json" for production encoding, anything else for console output).
func NewZap(levelStr, format string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// New returns a Logger backed by zap. It falls back to a no-op logger when zap
// cannot be configured so callers never deal with a nil Logger.
func New(levelStr, format string) Logger {
	l, err := NewZap(levelStr, format)
	if err != nil {
		return NewNop()
	}
	return &zapLogger{l: l}
}

// FromZap wraps an existing *zap.Logger.
func FromZap(l *zap.Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return &zapLogger{l: l}
}

// NewTest routes log output through t.Log.
func NewTest(t testing.TB) Logger {
	return &zapLogger{l: zaptest.NewLogger(t)}
}

// NewNop discards everything.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop()}
}

// Sync flushes buffered entries when the Logger is zap backed.
func Sync(l Logger) {
	if z, ok := l.(*zapLogger); ok {
		_ = z.l.Sync()
	}
}

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Debug(msg string, fields map[string]any) {
	z.l.Debug(msg, toZapFields(fields)...)
}

func (z *zapLogger) Info(msg string, fields map[string]any) {
	z.l.Info(msg, toZapFields(fields)...)
}

func (z *zapLogger) Warn(msg string, fields map[string]any) {
	z.l.Warn(msg, toZapFields(fields)...)
}

func (z *zapLogger) Error(msg string, fields map[string]any) {
	z.l.Error(msg, toZapFields(fields)...)
}

func (z *zapLogger) With(fields map[string]any) Logger {
	return &zapLogger{l: z.l.With(toZapFields(fields)...)}
}

func (z *zapLogger) WithError(err error) Logger {
	return &zapLogger{l: z.l.With(zap.Error(err))}
}

func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
