package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/ingest"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/store"
	"github.com/roach88/telemetryd/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock against a fresh registry.
type Harness struct {
	store    *store.Store
	registry *registry.Registry
	service  *ingest.Service
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh registry and in-memory journal.
//
// Execution flow:
// 1. Submit every delivery in order, recording a trace event each
// 2. Validate per-delivery expect clauses
// 3. Replay the journal and compare against the live states
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	clock := testutil.NewDeterministicClock()

	h := &Harness{
		store:    st,
		registry: reg,
		service: ingest.NewService(reg,
			ingest.WithJournal(st),
			ingest.WithLogger(logger),
			ingest.WithNow(clock.Current),
		),
		clock:  clock,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeDeliveries(ctx, scenario.Deliveries, result); err != nil {
		return nil, fmt.Errorf("failed to execute deliveries: %w", err)
	}

	for _, id := range reg.IDs() {
		s, _ := reg.Get(id)
		result.States = append(result.States, s)
	}
	result.Types = append(result.Types, reg.DistinctTypes()...)

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeDeliveries submits each delivery and validates its expect clause.
func (h *Harness) executeDeliveries(ctx context.Context, deliveries []Delivery, result *Result) error {
	for i, d := range deliveries {
		payload, err := convertMessage(d.Message)
		if err != nil {
			return fmt.Errorf("delivery %d: %w", i, err)
		}

		at := h.clock.Next()
		if d.Time != "" {
			if at, err = time.Parse(time.RFC3339Nano, d.Time); err != nil {
				return fmt.Errorf("delivery %d: time: %w", i, err)
			}
		}

		ev := event.New(d.Channel, d.Seq, d.Type, payload, at)
		te := TraceEvent{
			Channel: d.Channel,
			Seq:     d.Seq,
			Kind:    ev.Tag(),
			Applied: []int64{},
		}

		ack, err := h.service.Submit(ctx, ev)
		switch {
		case registry.IsReject(err):
			te.Outcome = OutcomeRejected
			te.Errors = []string{err.Error()}
		case err != nil:
			return fmt.Errorf("delivery %d: %w", i, err)
		default:
			te.Arrival = ack.Arrival
			te.Outcome = ack.Outcome
			te.Applied = ack.Applied
			te.Cursor = ack.Cursor
			te.Pending = ack.Pending
			te.Errors = ack.Errors
		}
		result.Trace = append(result.Trace, te)

		if d.Expect != nil {
			for _, msg := range checkExpect(i, d, te) {
				result.AddError(msg)
			}
		}

		h.logger.Debug("delivery completed",
			"step", i,
			"channel", d.Channel,
			"seq", d.Seq,
			"outcome", te.Outcome,
		)
	}
	return nil
}

// checkExpect compares one trace event against its expect clause.
func checkExpect(index int, d Delivery, te TraceEvent) []string {
	var errs []string
	prefix := fmt.Sprintf("deliveries[%d] (%s #%d)", index, d.Channel, d.Seq)

	if te.Outcome != d.Expect.Outcome {
		errs = append(errs, fmt.Sprintf("%s: expected outcome %q, got %q", prefix, d.Expect.Outcome, te.Outcome))
	}
	if d.Expect.Applied != nil && !slices.Equal(te.Applied, d.Expect.Applied) {
		errs = append(errs, fmt.Sprintf("%s: expected applied %v, got %v", prefix, d.Expect.Applied, te.Applied))
	}
	if d.Expect.Cursor != nil && te.Cursor != *d.Expect.Cursor {
		errs = append(errs, fmt.Sprintf("%s: expected cursor %d, got %d", prefix, *d.Expect.Cursor, te.Cursor))
	}
	if d.Expect.Pending != nil && te.Pending != *d.Expect.Pending {
		errs = append(errs, fmt.Sprintf("%s: expected pending %d, got %d", prefix, *d.Expect.Pending, te.Pending))
	}
	return errs
}

// verifyReplay rebuilds state from the journal and records an error for
// every entity whose rebuilt state differs from the live one.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	report, err := ingest.Replay(ctx, h.store, "")
	if err != nil {
		return err
	}
	for _, m := range report.Mismatches {
		result.AddError(fmt.Sprintf("replay: %s differs between arrival and sequence order", m.EntityID))
	}
	for _, rebuilt := range report.States {
		live, ok := result.State(rebuilt.ID)
		if !ok || !live.Equal(rebuilt) {
			result.AddError(fmt.Sprintf("replay: %s rebuilt from journal differs from live state", rebuilt.ID))
		}
	}
	if report.Entities != len(result.States) {
		result.AddError(fmt.Sprintf("replay: journal holds %d entities, registry %d", report.Entities, len(result.States)))
	}
	return nil
}
