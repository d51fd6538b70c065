package sequencer

import (
	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
)

// Observer is notified of every sequencing decision.
//
// Methods are called while the sequencer's lock is held, in the order the
// decisions are made. Implementations must be fast and must not call back
// into the same Sequencer.
type Observer interface {
	// Applied is called after ev has been folded into the state, which is
	// passed as it stands after the fold.
	Applied(ev event.Event, state entity.State)

	// Failed is called when an applied event's payload could not be folded.
	// Applied is still called for the same event afterwards.
	Failed(ev event.Event, err error)

	// Buffered is called when ev arrives ahead of the cursor.
	Buffered(ev event.Event, cursor int64, pending int)

	// Discarded is called when ev arrives at or below the cursor.
	Discarded(ev event.Event, cursor int64)

	// Evicted is called when a stale duplicate is dropped from the buffer
	// during drain.
	Evicted(ev event.Event, cursor int64)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) Applied(event.Event, entity.State) {}
func (NopObserver) Failed(event.Event, error)         {}
func (NopObserver) Buffered(event.Event, int64, int)  {}
func (NopObserver) Discarded(event.Event, int64)      {}
func (NopObserver) Evicted(event.Event, int64)        {}

// Observers fans every notification out to each member in order.
type Observers []Observer

func (o Observers) Applied(ev event.Event, state entity.State) {
	for _, obs := range o {
		obs.Applied(ev, state)
	}
}

func (o Observers) Failed(ev event.Event, err error) {
	for _, obs := range o {
		obs.Failed(ev, err)
	}
}

func (o Observers) Buffered(ev event.Event, cursor int64, pending int) {
	for _, obs := range o {
		obs.Buffered(ev, cursor, pending)
	}
}

func (o Observers) Discarded(ev event.Event, cursor int64) {
	for _, obs := range o {
		obs.Discarded(ev, cursor)
	}
}

func (o Observers) Evicted(ev event.Event, cursor int64) {
	for _, obs := range o {
		obs.Evicted(ev, cursor)
	}
}
