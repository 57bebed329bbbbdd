package core

import "time"

// EventKind labels engine lifecycle events.
type EventKind string

const (
	// EventSubmitted: a root task was accepted by an engine.
	EventSubmitted EventKind = "submitted"
	// EventSpawned: a task's action scheduled a child.
	EventSpawned EventKind = "spawned"
	// EventRetired: a task left its arena.
	EventRetired EventKind = "retired"
	// EventPanicked: a poll panic was recovered.
	EventPanicked EventKind = "panicked"
	// EventRejected: a submission was refused.
	EventRejected EventKind = "rejected"
)

// Event is one engine lifecycle notification. Observation is set for root
// tasks only; Outcome and Error accompany EventRetired.
type Event struct {
	Kind        EventKind `json:"kind"`
	Engine      string    `json:"engine"`
	Worker      int       `json:"worker"`
	Observation string    `json:"observation,omitempty"`
	Label       string    `json:"label,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// EventSink receives engine events. Publish is called on the worker loops
// and from submitter goroutines; it must be thread-safe and must not
// block.
type EventSink interface {
	Publish(ev Event)
}

// NopEventSink drops all events.
type NopEventSink struct{}

func (NopEventSink) Publish(Event) {}
