package events

import (
	"log/slog"
	"sync"

	"ledgerkit/observability/metrics"
)

// LogEmitter writes each event as one structured log record. It is the
// default sink for composed services.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates an emitter backed by the given logger. Passing nil
// uses the process default logger.
func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

// Emit appends a single record to the log sink.
func (e *LogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	rec := evt.Record()
	if rec == nil {
		return
	}
	metrics.EventEmitted(rec.Standard, rec.Event)
	e.log.Info("event",
		slog.String("standard", rec.Standard),
		slog.String("version", rec.Version),
		slog.String("event", rec.Event),
		slog.Any("data", rec.Data),
	)
}

// Capture retains emitted events in order. Primarily intended for tests to
// assert on emission counts and payloads.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (c *Capture) Emit(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

// Events returns a snapshot of the captured events.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset clears the captured events.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
