package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/telemetryd/internal/event"
)

// Arrival is one journal row.
type Arrival struct {
	// Arrival is the registry-wide delivery number and the primary key.
	Arrival int64

	EventID  string
	EntityID string
	Seq      int64

	// Kind is the wire tag as delivered, not the resolved kind, so replay
	// resolves it again exactly as ingress did.
	Kind      string
	Payload   event.Payload
	EventTime time.Time

	// Outcome is the sequencer outcome name ("applied", "buffered",
	// "discarded").
	Outcome    string
	RequestID  string
	RecordedAt time.Time
}

// NewArrival builds a journal row for ev.
func NewArrival(arrival int64, ev event.Event, outcome, requestID string, recordedAt time.Time) (Arrival, error) {
	id, err := ev.ID()
	if err != nil {
		return Arrival{}, fmt.Errorf("new arrival: %w", err)
	}
	return Arrival{
		Arrival:    arrival,
		EventID:    id,
		EntityID:   ev.EntityID,
		Seq:        ev.Seq,
		Kind:       ev.Tag(),
		Payload:    ev.Payload.Clone(),
		EventTime:  ev.Time,
		Outcome:    outcome,
		RequestID:  requestID,
		RecordedAt: recordedAt,
	}, nil
}

// Event reconstructs the delivered event.
func (a Arrival) Event() event.Event {
	return event.New(a.EntityID, a.Seq, a.Kind, a.Payload, a.EventTime)
}

// WriteArrival appends one row to the journal.
// Uses ON CONFLICT(arrival) DO NOTHING for idempotency - rewriting the same
// arrival number is silently ignored.
func (s *Store) WriteArrival(ctx context.Context, a Arrival) error {
	payloadJSON, err := marshalPayload(a.Payload)
	if err != nil {
		return fmt.Errorf("write arrival: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO arrivals
		(arrival, event_id, entity_id, seq, kind, payload, event_time, outcome, request_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(arrival) DO NOTHING
	`,
		a.Arrival,
		a.EventID,
		a.EntityID,
		a.Seq,
		a.Kind,
		payloadJSON,
		event.FormatTime(a.EventTime),
		a.Outcome,
		a.RequestID,
		event.FormatTime(a.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("write arrival: %w", err)
	}

	return nil
}
