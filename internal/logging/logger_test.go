package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := New(Config{Level: "debug", Format: format})
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestFieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core).Named("contrast").With(String("job_id", "j1"))

	l.Info("job finished",
		Int("genes", 5),
		Uint64("seed", 42),
		Float64("fdr", 0.01),
		Bool("cached", false),
		Duration("took", time.Second),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "contrast", entry.LoggerName)
	assert.Equal(t, "job finished", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "j1", fields["job_id"])
	assert.Equal(t, int64(5), fields["genes"])
	assert.Equal(t, uint64(42), fields["seed"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewFromCore(core)
	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept")
	assert.Equal(t, 2, logs.Len())
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Debug("msg")
	l.Info("msg", String("k", "v"))
	l.Warn("msg")
	l.Error("msg", Err(nil))
	assert.NotNil(t, l.With(Int("n", 1)).Named("child"))
}
