package harness

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, te := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s #%d %s -> %s\n", i+1, te.Channel, te.Seq, te.Kind, te.Outcome)
		}
	}

	return buf.String()
}

// stateFields are the final_state keys, named as on the wire.
var stateFields = map[string]bool{
	"type":              true,
	"speed":             true,
	"mission":           true,
	"status":            true,
	"launchTime":        true,
	"missionEndTime":    true,
	"lastMessageNumber": true,
	"created":           true,
}

// stateField renders one field of s as text for comparison.
func stateField(s entity.State, key string) string {
	switch key {
	case "type":
		return s.Type
	case "speed":
		return strconv.FormatInt(s.Speed, 10)
	case "mission":
		return s.Mission
	case "status":
		return s.Status
	case "launchTime":
		return event.FormatTime(s.LaunchTime)
	case "missionEndTime":
		return event.FormatTime(s.MissionEndTime)
	case "lastMessageNumber":
		return strconv.FormatInt(s.LastSeq, 10)
	case "created":
		return strconv.FormatBool(s.Created())
	default:
		return ""
	}
}

// expectedField renders a YAML-parsed expectation the way stateField
// renders the actual value. Timestamps are normalized to UTC.
func expectedField(key string, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return event.FormatTime(val)
	case string:
		if key == "launchTime" || key == "missionEndTime" {
			if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return event.FormatTime(t)
			}
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}

// assertFinalState checks the final state of one channel (subset match).
func assertFinalState(result *Result, assertion Assertion) error {
	s, ok := result.State(assertion.Channel)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entity %q", assertion.Channel),
			Actual:   "entity not found",
			Trace:    result.Trace,
		}
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		want := expectedField(key, assertion.Expect[key])
		got := stateField(s, key)
		if want != got {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %q", assertion.Channel, key, want),
				Actual:   fmt.Sprintf("%s.%s = %q", assertion.Channel, key, got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertOutcomeCount checks how many deliveries had the given outcome.
func assertOutcomeCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, te := range trace {
		if te.Outcome == assertion.Outcome {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d %s deliveries", assertion.Count, assertion.Outcome),
			Actual:   fmt.Sprintf("%d %s deliveries", count, assertion.Outcome),
			Trace:    trace,
		}
	}
	return nil
}

// assertAppliedOrder checks the sequence numbers applied to a channel
// across the whole run, in application order.
func assertAppliedOrder(trace []TraceEvent, assertion Assertion) error {
	applied := []int64{}
	for _, te := range trace {
		if te.Channel == assertion.Channel {
			applied = append(applied, te.Applied...)
		}
	}

	want := assertion.Seqs
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(applied, want) {
		return &AssertionError{
			Type:     AssertAppliedOrder,
			Expected: fmt.Sprintf("%s applied %v", assertion.Channel, want),
			Actual:   fmt.Sprintf("%s applied %v", assertion.Channel, applied),
			Trace:    trace,
		}
	}
	return nil
}

// assertDistinctTypes checks the set of classification values.
func assertDistinctTypes(result *Result, assertion Assertion) error {
	want := slices.Clone(assertion.Types)
	if want == nil {
		want = []string{}
	}
	slices.Sort(want)

	if !slices.Equal(result.Types, want) {
		return &AssertionError{
			Type:     AssertDistinctTypes,
			Expected: fmt.Sprintf("types %v", want),
			Actual:   fmt.Sprintf("types %v", result.Types),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, assertion)
		case AssertAppliedOrder:
			err = assertAppliedOrder(result.Trace, assertion)
		case AssertDistinctTypes:
			err = assertDistinctTypes(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
