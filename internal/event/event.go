package event

import (
	"fmt"
	"maps"
	"time"
)

// Payload holds the kind-specific fields of an event.
// Only the entity state machine interprets it.
type Payload map[string]string

// Get returns the value for field and whether it was present.
func (p Payload) Get(field string) (string, bool) {
	v, ok := p[field]
	return v, ok
}

// Clone returns an independent copy. A nil payload clones to nil.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Event is one telemetry message for one entity.
//
// Events are treated as immutable once constructed; use New to take a
// private copy of the payload.
type Event struct {
	EntityID string
	Seq      int64
	Kind     Kind
	// RawKind is the tag as received on the wire. It is kept for the
	// journal and traces; dispatch uses Kind only.
	RawKind string
	Payload Payload
	Time    time.Time
}

// New builds an Event from its wire parts, resolving the kind once.
func New(entityID string, seq int64, tag string, payload Payload, at time.Time) Event {
	return Event{
		EntityID: entityID,
		Seq:      seq,
		Kind:     ParseKind(tag),
		RawKind:  tag,
		Payload:  payload.Clone(),
		Time:     at,
	}
}

// Tag returns the wire tag the event arrived with, falling back to the
// canonical tag of its kind.
func (e Event) Tag() string {
	if e.RawKind != "" {
		return e.RawKind
	}
	return e.Kind.String()
}

// String returns a short human-readable form for logs.
func (e Event) String() string {
	return fmt.Sprintf("%s#%d(%s)", e.EntityID, e.Seq, e.Kind)
}
