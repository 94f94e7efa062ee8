package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromZapWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With(map[string]any{"session": "abc"})

	log.Info("turn finished", map[string]any{"outcome": "parsed"})
	log.WithError(errors.New("boom")).Error("save failed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "turn finished", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["session"])
	assert.Equal(t, "parsed", entries[0].ContextMap()["outcome"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestErrorValuesBecomeNamedErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	FromZap(zap.New(core)).Warn("tool failed", map[string]any{"cause": errors.New("timeout")})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "timeout", logs.All()[0].ContextMap()["cause"])
}

func TestNewZapLevels(t *testing.T) {
	l, err := NewZap("warn", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = NewZap("", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNilZapFallsBackToNop(t *testing.T) {
	log := FromZap(nil)
	assert.NotPanics(t, func() {
		log.Info("ignored", nil)
		Sync(log)
	})
}
