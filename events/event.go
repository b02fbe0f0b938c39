package events

// Record is the wire form of a single emitted event: a versioned standard
// name, an event-type name, and an ordered sequence of structured payload
// entries. Records are written to the log sink only and never persisted.
type Record struct {
	Standard string           `json:"standard"`
	Version  string           `json:"version"`
	Event    string           `json:"event"`
	Data     []map[string]any `json:"data"`
}

// Event represents a structured state change emitted by a service component.
type Event interface {
	EventType() string
	Record() *Record
}

// Emitter appends events to the host log sink. Emission happens only as a
// side effect of a successful mutation, one synchronous append per mutation.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while
// discarding all events. It is useful when a component wants to optionally
// expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
