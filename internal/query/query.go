// Package query filters and orders entity snapshots for presentation.
package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/telemetryd/internal/entity"
)

// Sort keys accepted by Params.SortBy. Anything else sorts by mission.
const (
	SortType       = "type"
	SortSpeed      = "speed"
	SortStatus     = "status"
	SortLaunchTime = "launchTime"
	SortEndTime    = "endTime"
	SortMission    = "mission"
)

// OrderDesc reverses the sort. Matched case-insensitively.
const OrderDesc = "desc"

// Params selects and orders entities.
type Params struct {
	// Type keeps only entities whose type matches, ignoring case.
	// Empty keeps everything.
	Type string

	SortBy  string
	OrderBy string
}

// Descending reports whether OrderBy asks for reverse order.
func (p Params) Descending() bool {
	return strings.EqualFold(p.OrderBy, OrderDesc)
}

// Filter returns a predicate for registry.Query. A nil result matches all.
func (p Params) Filter() func(entity.State) bool {
	if p.Type == "" {
		return nil
	}
	return func(s entity.State) bool {
		return strings.EqualFold(s.Type, p.Type)
	}
}

// Apply filters states by type and sorts them in place.
// The sort is stable with the entity id as the final tie-break, so equal
// keys come back in the same order on every call.
func Apply(states []entity.State, p Params) []entity.State {
	if keep := p.Filter(); keep != nil {
		states = slices.DeleteFunc(states, func(s entity.State) bool { return !keep(s) })
	}

	key := comparator(p.SortBy)
	desc := p.Descending()
	slices.SortStableFunc(states, func(a, b entity.State) int {
		c := key(a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
	return states
}

// comparator returns the ordering for sortBy. Unset times are the zero
// time and sort first.
func comparator(sortBy string) func(a, b entity.State) int {
	switch sortBy {
	case SortType:
		return func(a, b entity.State) int { return strings.Compare(a.Type, b.Type) }
	case SortSpeed:
		return func(a, b entity.State) int { return cmp.Compare(a.Speed, b.Speed) }
	case SortStatus:
		return func(a, b entity.State) int { return strings.Compare(a.Status, b.Status) }
	case SortLaunchTime:
		return func(a, b entity.State) int { return a.LaunchTime.Compare(b.LaunchTime) }
	case SortEndTime:
		return func(a, b entity.State) int { return a.MissionEndTime.Compare(b.MissionEndTime) }
	default:
		return func(a, b entity.State) int { return strings.Compare(a.Mission, b.Mission) }
	}
}

