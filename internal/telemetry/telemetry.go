// Package telemetry carries structured step events out of the prepare
// pipeline. The core emits through the Emitter interface and never assumes a
// particular sink; the zap emitter is what the CLI wires in.
package telemetry

import (
	"time"

	"go.uber.org/zap"
)

// Outcomes of a pipeline step.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeWarning = "warning"
)

// Event describes one completed pipeline step.
type Event struct {
	Step     string
	Outcome  string
	Duration time.Duration
	Fields   map[string]any
}

// Emitter consumes pipeline events.
type Emitter interface {
	Emit(Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(Event) {}

// ZapEmitter writes events as structured log entries.
type ZapEmitter struct {
	log *zap.Logger
}

func NewZapEmitter(log *zap.Logger) *ZapEmitter {
	return &ZapEmitter{log: log}
}

func (e *ZapEmitter) Emit(ev Event) {
	fields := make([]zap.Field, 0, len(ev.Fields)+2)
	fields = append(fields,
		zap.String("outcome", ev.Outcome),
		zap.Duration("duration", ev.Duration),
	)
	for k, v := range ev.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch ev.Outcome {
	case OutcomeError:
		e.log.Error(ev.Step, fields...)
	case OutcomeWarning:
		e.log.Warn(ev.Step, fields...)
	default:
		e.log.Info(ev.Step, fields...)
	}
}

// NewLogger builds the default zap logger for the CLI. Development encoding
// unless production is requested.
func NewLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	return cfg.Build()
}
