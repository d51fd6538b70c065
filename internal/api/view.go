package api

import (
	"time"

	"github.com/roach88/telemetryd/internal/entity"
)

// rocketView is the JSON shape of one entity. Unset times are null.
type rocketView struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	Speed             int64      `json:"speed"`
	Mission           string     `json:"mission"`
	LaunchTime        *time.Time `json:"launchTime"`
	LastMessageNumber int64      `json:"lastMessageNumber"`
	Status            string     `json:"status"`
	MissionEndTime    *time.Time `json:"missionEndTime"`
}

func newRocketView(s entity.State) rocketView {
	return rocketView{
		ID:                s.ID,
		Type:              s.Type,
		Speed:             s.Speed,
		Mission:           s.Mission,
		LaunchTime:        optionalTime(s.LaunchTime),
		LastMessageNumber: s.LastSeq,
		Status:            s.Status,
		MissionEndTime:    optionalTime(s.MissionEndTime),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
