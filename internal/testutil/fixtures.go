package testutil

import (
	"strconv"
	"time"

	"github.com/roach88/telemetryd/internal/event"
)

// Default fixture values for a created entity.
const (
	FixtureType    = "Falcon-9"
	FixtureMission = "ARTEMIS"
)

// Launch builds the creation event (seq 1) for entityID.
func Launch(entityID string, speed int64) event.Event {
	return LaunchAt(entityID, speed, FixtureType, FixtureMission, Epoch)
}

// LaunchAt builds a creation event with explicit classification and time.
func LaunchAt(entityID string, speed int64, typ, mission string, at time.Time) event.Event {
	return event.New(entityID, 1, event.TagCreated, event.Payload{
		"type":        typ,
		"launchSpeed": strconv.FormatInt(speed, 10),
		"mission":     mission,
	}, at)
}

// ChangeSpeed builds an increase event for by >= 0 and a decrease event
// for by < 0, carrying the absolute value on the wire.
func ChangeSpeed(seq int64, entityID string, by int64) event.Event {
	tag := event.TagIncrease
	if by < 0 {
		tag = event.TagDecrease
		by = -by
	}
	return event.New(entityID, seq, tag, event.Payload{
		"by": strconv.FormatInt(by, 10),
	}, Epoch.Add(time.Duration(seq)*time.Second))
}

// Explode builds a terminal event.
func Explode(seq int64, entityID, reason string) event.Event {
	return event.New(entityID, seq, event.TagTerminal, event.Payload{
		"reason": reason,
	}, Epoch.Add(time.Duration(seq)*time.Second))
}

// ChangeMission builds a relabel event.
func ChangeMission(seq int64, entityID, mission string) event.Event {
	return event.New(entityID, seq, event.TagRelabel, event.Payload{
		"newMission": mission,
	}, Epoch.Add(time.Duration(seq)*time.Second))
}

// Unrecognized builds an event with a tag outside the known set.
func Unrecognized(seq int64, entityID string) event.Event {
	return event.New(entityID, seq, "RocketRefueled", event.Payload{
		"fuel": "full",
	}, Epoch.Add(time.Duration(seq)*time.Second))
}
