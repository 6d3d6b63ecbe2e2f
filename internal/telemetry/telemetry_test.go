package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapEmitter(t *testing.T) {
	newObserved := func() (*ZapEmitter, *observer.ObservedLogs) {
		core, logs := observer.New(zapcore.DebugLevel)
		return NewZapEmitter(zap.New(core)), logs
	}

	t.Run("ok events log at info", func(t *testing.T) {
		emitter, logs := newObserved()
		emitter.Emit(Event{
			Step:     "classify",
			Outcome:  OutcomeOK,
			Duration: 5 * time.Millisecond,
			Fields:   map[string]any{"label": "send token"},
		})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "classify", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, OutcomeOK, fields["outcome"])
		assert.Equal(t, "send token", fields["label"])
	})

	t.Run("error events log at error", func(t *testing.T) {
		emitter, logs := newObserved()
		emitter.Emit(Event{Step: "simulate", Outcome: OutcomeError})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("warning events log at warn", func(t *testing.T) {
		emitter, logs := newObserved()
		emitter.Emit(Event{Step: "validate", Outcome: OutcomeWarning})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})
}

func TestNop(t *testing.T) {
	// Must not panic on any event.
	Nop{}.Emit(Event{Step: "assemble", Outcome: OutcomeOK})
}
