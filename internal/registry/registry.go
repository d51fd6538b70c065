package registry

import (
	"slices"
	"sync"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/sequencer"
)

// Registry routes events to per-entity sequencers.
//
// Thread-safety model:
//   - Dispatch, Get, Query, DistinctTypes, Stats: safe from any goroutine
//   - find-or-create is atomic per id (double-checked under the write lock)
type Registry struct {
	mu         sync.RWMutex
	sequencers map[string]*sequencer.Sequencer

	clock    *Clock
	observer sequencer.Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver sets the observer given to every sequencer the registry
// creates.
func WithObserver(o sequencer.Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithClock sets the arrival clock. Default: NewClock().
func WithClock(c *Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sequencers: make(map[string]*sequencer.Sequencer),
		clock:      NewClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch stamps ev with an arrival number, finds or creates the
// sequencer for its entity and forwards Accept to it.
//
// Events with an empty entity id or a sequence number below 1 are rejected
// with a *RejectError before any sequencer is created.
func (r *Registry) Dispatch(ev event.Event) (Dispatched, error) {
	if ev.EntityID == "" {
		return Dispatched{}, &RejectError{Code: ErrCodeMissingEntity, Seq: ev.Seq}
	}
	if ev.Seq < 1 {
		return Dispatched{}, &RejectError{Code: ErrCodeInvalidSequence, EntityID: ev.EntityID, Seq: ev.Seq}
	}

	seq := r.sequencerFor(ev.EntityID)
	arrival := r.clock.Next()
	return Dispatched{
		Arrival:   arrival,
		Sequencer: seq,
		Result:    seq.Accept(ev),
	}, nil
}

// Dispatched is the outcome of one Dispatch call.
type Dispatched struct {
	// Arrival is the registry-wide delivery number.
	Arrival int64

	// Sequencer is the handle for the event's entity.
	Sequencer *sequencer.Sequencer

	Result sequencer.Result
}

// sequencerFor returns the sequencer for id, creating it at most once.
func (r *Registry) sequencerFor(id string) *sequencer.Sequencer {
	r.mu.RLock()
	seq, ok := r.sequencers[id]
	r.mu.RUnlock()
	if ok {
		return seq
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have won the race between the two locks.
	if seq, ok := r.sequencers[id]; ok {
		return seq
	}
	var opts []sequencer.Option
	if r.observer != nil {
		opts = append(opts, sequencer.WithObserver(r.observer))
	}
	seq = sequencer.New(id, opts...)
	r.sequencers[id] = seq
	return seq
}

// Lookup returns the sequencer handle for id without creating one.
func (r *Registry) Lookup(id string) (*sequencer.Sequencer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq, ok := r.sequencers[id]
	return seq, ok
}

// Get returns a snapshot of the state for id.
// The second result is false if no event for id has been dispatched.
func (r *Registry) Get(id string) (entity.State, bool) {
	seq, ok := r.Lookup(id)
	if !ok {
		return entity.State{}, false
	}
	return seq.Snapshot(), true
}

// Query returns snapshots of all states matching pred, in no defined order.
// A nil pred matches everything.
func (r *Registry) Query(pred func(entity.State) bool) []entity.State {
	states := make([]entity.State, 0, r.Len())
	for _, seq := range r.all() {
		s := seq.Snapshot()
		if pred == nil || pred(s) {
			states = append(states, s)
		}
	}
	return states
}

// DistinctTypes returns the set of entity types, sorted.
// Entities that have not been created yet carry no type and are skipped.
func (r *Registry) DistinctTypes() []string {
	set := make(map[string]struct{})
	for _, seq := range r.all() {
		s := seq.Snapshot()
		if !s.Created() {
			continue
		}
		set[s.Type] = struct{}{}
	}

	types := make([]string, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// IDs returns the ids of all known entities, sorted, including entities
// still waiting for their creation event.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sequencers))
	for id := range r.sequencers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of known entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequencers)
}

// Stats summarizes the registry.
type Stats struct {
	Entities int   `json:"entities"`
	Pending  int   `json:"pending"`
	Arrivals int64 `json:"arrivals"`
}

// Stats returns entity count, total buffered events and arrivals so far.
func (r *Registry) Stats() Stats {
	seqs := r.all()
	st := Stats{Entities: len(seqs), Arrivals: r.clock.Current()}
	for _, seq := range seqs {
		st.Pending += seq.Pending()
	}
	return st
}

// all copies the sequencer handles so callers can snapshot them without
// holding the registry lock.
func (r *Registry) all() []*sequencer.Sequencer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seqs := make([]*sequencer.Sequencer, 0, len(r.sequencers))
	for _, seq := range r.sequencers {
		seqs = append(seqs, seq)
	}
	return seqs
}
