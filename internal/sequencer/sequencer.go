package sequencer

import (
	"container/heap"
	"sync"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
)

// Outcome classifies what Accept did with the submitted event.
type Outcome int

const (
	// OutcomeApplied means the event was the next expected one and was
	// folded into state, possibly followed by buffered successors.
	OutcomeApplied Outcome = iota + 1
	// OutcomeBuffered means the event is ahead of the cursor and waits.
	OutcomeBuffered
	// OutcomeDiscarded means the event was stale or a duplicate.
	OutcomeDiscarded
)

// String returns the lower-case outcome name used in logs and journals.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeBuffered:
		return "buffered"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String. Unknown names yield 0.
func ParseOutcome(s string) Outcome {
	switch s {
	case "applied":
		return OutcomeApplied
	case "buffered":
		return OutcomeBuffered
	case "discarded":
		return OutcomeDiscarded
	default:
		return 0
	}
}

// Result reports the effect of one Accept call.
type Result struct {
	Outcome Outcome

	// Applied lists the sequence numbers folded into state by this call,
	// in order: the submitted event first, then any drained successors.
	Applied []int64

	// Cursor and Pending describe the sequencer after the call.
	Cursor  int64
	Pending int

	// Errs holds one *entity.PayloadError per applied event whose effect
	// was lost. Their sequence numbers are still in Applied.
	Errs []error
}

// Sequencer owns one entity's state and reorder buffer.
type Sequencer struct {
	entityID string
	observer Observer

	mu       sync.Mutex
	state    entity.State
	pending  reorderBuffer
	inserted uint64
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithObserver sets the observer notified of sequencing decisions.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a Sequencer for entityID with cursor 0 and an empty buffer.
// Snapshots carry the id even before the creation event is applied.
func New(entityID string, opts ...Option) *Sequencer {
	s := &Sequencer{
		entityID: entityID,
		observer: NopObserver{},
		state:    entity.State{ID: entityID},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EntityID returns the id this sequencer was created for.
func (s *Sequencer) EntityID() string {
	return s.entityID
}

// Accept routes ev through the discard / apply-and-drain / buffer rule.
// Safe for concurrent use. It never blocks beyond the entity's own lock.
func (s *Sequencer) Accept(ev event.Event) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	cursor := s.state.LastSeq

	switch {
	case ev.Seq <= cursor:
		res.Outcome = OutcomeDiscarded
		s.observer.Discarded(ev, cursor)

	case ev.Seq == cursor+1:
		res.Outcome = OutcomeApplied
		s.apply(ev, &res)
		s.drain(&res)

	default:
		res.Outcome = OutcomeBuffered
		s.inserted++
		heap.Push(&s.pending, buffered{ev: ev, n: s.inserted})
		s.observer.Buffered(ev, cursor, s.pending.Len())
	}

	res.Cursor = s.state.LastSeq
	res.Pending = s.pending.Len()
	return res
}

// apply folds one sequence-adjacent event. Caller holds s.mu.
func (s *Sequencer) apply(ev event.Event, res *Result) {
	next, err := entity.Apply(s.state, ev)
	s.state = next
	res.Applied = append(res.Applied, ev.Seq)
	if err != nil {
		res.Errs = append(res.Errs, err)
		s.observer.Failed(ev, err)
	}
	s.observer.Applied(ev, next)
}

// drain applies buffered successors and evicts stale duplicates until the
// buffer minimum is beyond the next expected sequence. Caller holds s.mu.
func (s *Sequencer) drain(res *Result) {
	for s.pending.Len() > 0 {
		head := s.pending.peek()
		switch {
		case head.Seq <= s.state.LastSeq:
			heap.Pop(&s.pending)
			s.observer.Evicted(head, s.state.LastSeq)
		case head.Seq == s.state.Expected():
			heap.Pop(&s.pending)
			s.apply(head, res)
		default:
			return
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *Sequencer) Snapshot() entity.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the last applied sequence number.
func (s *Sequencer) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastSeq
}

// Pending returns the number of events waiting in the reorder buffer.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// PendingSeqs returns the buffered sequence numbers in ascending order.
// Duplicates appear once per resident copy.
func (s *Sequencer) PendingSeqs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(reorderBuffer, len(s.pending))
	copy(cp, s.pending)
	seqs := make([]int64, 0, len(cp))
	for cp.Len() > 0 {
		seqs = append(seqs, heap.Pop(&cp).(buffered).ev.Seq)
	}
	return seqs
}
