package ingest

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/store"
)

// ArrivalSource reads journal rows. *store.Store satisfies it.
type ArrivalSource interface {
	ReadArrivals(ctx context.Context, entityID string, order store.Order) ([]store.Arrival, error)
}

// Mismatch is an entity whose rebuilt states differ between orders.
type Mismatch struct {
	EntityID  string       `json:"channel"`
	ByArrival entity.State `json:"byArrival"`
	BySeq     entity.State `json:"bySeq"`
}

// ReplayReport summarizes a journal replay.
type ReplayReport struct {
	Arrivals   int            `json:"arrivals"`
	Entities   int            `json:"entities"`
	States     []entity.State `json:"states"`
	Mismatches []Mismatch     `json:"mismatches"`
}

// OK reports whether both orders produced identical states.
func (r ReplayReport) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay rebuilds state from the journal twice, once in arrival order and
// once in sequence order, each into a fresh registry, and compares the
// results per entity. An empty entityID replays every entity.
//
// Both rebuilds are offline; the live registry is never touched.
func Replay(ctx context.Context, src ArrivalSource, entityID string) (ReplayReport, error) {
	byArrival, err := rebuild(ctx, src, entityID, store.ByArrival)
	if err != nil {
		return ReplayReport{}, err
	}
	bySeq, err := rebuild(ctx, src, entityID, store.BySeq)
	if err != nil {
		return ReplayReport{}, err
	}

	report := ReplayReport{
		Arrivals:   int(byArrival.Stats().Arrivals),
		Entities:   byArrival.Len(),
		States:     []entity.State{},
		Mismatches: []Mismatch{},
	}

	ids := byArrival.IDs()
	for _, id := range bySeq.IDs() {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		a, _ := byArrival.Get(id)
		b, _ := bySeq.Get(id)
		report.States = append(report.States, a)
		if !a.Equal(b) {
			report.Mismatches = append(report.Mismatches, Mismatch{EntityID: id, ByArrival: a, BySeq: b})
		}
	}
	return report, nil
}

func rebuild(ctx context.Context, src ArrivalSource, entityID string, order store.Order) (*registry.Registry, error) {
	arrivals, err := src.ReadArrivals(ctx, entityID, order)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	reg := registry.New()
	for _, a := range arrivals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := reg.Dispatch(a.Event()); err != nil {
			return nil, fmt.Errorf("replay arrival %d: %w", a.Arrival, err)
		}
	}
	return reg, nil
}
