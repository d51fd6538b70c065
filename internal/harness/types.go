package harness

import "github.com/roach88/telemetryd/internal/entity"

// TraceEvent records the effect of one delivery.
type TraceEvent struct {
	Arrival int64    `json:"arrival"` // 0 for rejected deliveries
	Channel string   `json:"channel"`
	Seq     int64    `json:"seq"`
	Kind    string   `json:"kind"`
	Outcome string   `json:"outcome"`
	Applied []int64  `json:"applied"`
	Cursor  int64    `json:"cursor"`
	Pending int      `json:"pending"`
	Errors  []string `json:"errors,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per delivery, in arrival order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// States holds every entity's final state, ordered by id.
	States []entity.State `json:"states"`

	// Types is the registry's distinct classification values.
	Types []string `json:"types"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		States: []entity.State{},
		Types:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// State returns the final state of channel.
func (r *Result) State(channel string) (entity.State, bool) {
	for _, s := range r.States {
		if s.ID == channel {
			return s, true
		}
	}
	return entity.State{}, false
}
