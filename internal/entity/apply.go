package entity

import (
	"strconv"

	"github.com/roach88/telemetryd/internal/event"
)

// Apply folds ev into s and returns the resulting state.
//
// Precondition: ev.Seq == s.LastSeq+1. The returned state always has
// LastSeq == ev.Seq. A non-nil error is a *PayloadError describing an
// effect that was lost; the returned state is still the one to keep.
func Apply(s State, ev event.Event) (State, error) {
	next := s
	next.LastSeq = ev.Seq

	// Identity is set once: anything other than the first creation is a
	// no-op until the entity exists, and a repeated creation afterwards is
	// ignored.
	if !s.Created() {
		if ev.Kind != event.KindCreated {
			return next, nil
		}
		return create(next, ev)
	}

	switch ev.Kind {
	case event.KindIncrease:
		delta, err := intField(ev, FieldDelta)
		if err != nil {
			return next, err
		}
		next.Speed += delta

	case event.KindDecrease:
		delta, err := intField(ev, FieldDelta)
		if err != nil {
			return next, err
		}
		next.Speed -= delta

	case event.KindTerminal:
		next.Status = ev.Payload[FieldReason]
		next.MissionEndTime = ev.Time

	case event.KindRelabel:
		next.Mission = ev.Payload[FieldNewMission]
	}

	return next, nil
}

func create(next State, ev event.Event) (State, error) {
	next.ID = ev.EntityID
	next.Type = ev.Payload[FieldType]
	next.Mission = ev.Payload[FieldMission]
	next.LaunchTime = ev.Time
	next.Status = StatusActive
	next.created = true

	speed, err := intField(ev, FieldLaunchSpeed)
	if err != nil {
		return next, err
	}
	next.Speed = speed
	return next, nil
}

// intField parses a base-10 integer payload field.
func intField(ev event.Event, field string) (int64, error) {
	raw, ok := ev.Payload.Get(field)
	if !ok {
		return 0, &PayloadError{
			Code:     ErrCodeMissingField,
			EntityID: ev.EntityID,
			Seq:      ev.Seq,
			Kind:     ev.Kind,
			Field:    field,
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &PayloadError{
			Code:     ErrCodeMalformedField,
			EntityID: ev.EntityID,
			Seq:      ev.Seq,
			Kind:     ev.Kind,
			Field:    field,
			Value:    raw,
			Err:      err,
		}
	}
	return n, nil
}
