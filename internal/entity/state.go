package entity

import "time"

// StatusActive is the status of a created, not yet terminated entity.
const StatusActive = "active"

// Payload field names read by the state machine.
const (
	FieldType        = "type"
	FieldLaunchSpeed = "launchSpeed"
	FieldMission     = "mission"
	FieldDelta       = "by"
	FieldReason      = "reason"
	FieldNewMission  = "newMission"
)

// State is the aggregate state of one entity.
//
// State is a value type. Snapshots handed to readers are copies and never
// alias the sequencer's working state.
type State struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Speed          int64     `json:"speed"`
	Mission        string    `json:"mission"`
	LaunchTime     time.Time `json:"launchTime"`
	Status         string    `json:"status"`
	MissionEndTime time.Time `json:"missionEndTime"`

	// LastSeq is the cursor: the highest sequence number folded in.
	LastSeq int64 `json:"lastMessageNumber"`

	created bool
}

// Created reports whether a creation event has been applied.
func (s State) Created() bool {
	return s.created
}

// Expected returns the sequence number the state will accept next.
func (s State) Expected() int64 {
	return s.LastSeq + 1
}

// Equal reports whether s and o hold the same values. Times compare by
// instant, so states rebuilt from a journal match live ones.
func (s State) Equal(o State) bool {
	return s.ID == o.ID &&
		s.Type == o.Type &&
		s.Speed == o.Speed &&
		s.Mission == o.Mission &&
		s.LaunchTime.Equal(o.LaunchTime) &&
		s.Status == o.Status &&
		s.MissionEndTime.Equal(o.MissionEndTime) &&
		s.LastSeq == o.LastSeq &&
		s.created == o.created
}
