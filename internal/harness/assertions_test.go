package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/testutil"
)

// resultFor runs deliveries for channel c1 with no assertions attached.
func resultFor(t *testing.T, deliveries ...Delivery) *Result {
	t.Helper()
	result, err := Run(&Scenario{
		Name:        "fixture",
		Description: "assertion fixture",
		Deliveries:  deliveries,
	})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	return result
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Arrival: 1, Channel: "a", Seq: 2, Kind: "RocketSpeedIncreased", Outcome: "buffered", Applied: []int64{}, Pending: 1},
		{Arrival: 2, Channel: "b", Seq: 1, Kind: "RocketLaunched", Outcome: "applied", Applied: []int64{1}, Cursor: 1},
		{Arrival: 3, Channel: "a", Seq: 1, Kind: "RocketLaunched", Outcome: "applied", Applied: []int64{1, 2}, Cursor: 2},
		{Arrival: 4, Channel: "a", Seq: 2, Kind: "RocketSpeedIncreased", Outcome: "discarded", Applied: []int64{}, Cursor: 2},
	}
}

func TestAssertFinalState_SubsetMatch(t *testing.T) {
	result := resultFor(t, launch("c1", 500), increase("c1", 2, 25))

	err := assertFinalState(result, Assertion{
		Type:    AssertFinalState,
		Channel: "c1",
		Expect: map[string]any{
			"speed":             525,
			"type":              "Falcon-9",
			"mission":           "ARTEMIS",
			"status":            entity.StatusActive,
			"lastMessageNumber": 2,
			"created":           true,
			"missionEndTime":    "",
		},
	})
	assert.NoError(t, err)
}

func TestAssertFinalState_TimesCompareByInstant(t *testing.T) {
	result := resultFor(t, launch("c1", 1))
	launched := testutil.Epoch.Add(time.Second)

	for _, want := range []any{
		launched,
		launched.In(time.FixedZone("", -5*3600)),
		"2022-02-02T19:39:06Z",
		"2022-02-02T20:39:06+01:00",
	} {
		err := assertFinalState(result, Assertion{
			Type:    AssertFinalState,
			Channel: "c1",
			Expect:  map[string]any{"launchTime": want},
		})
		assert.NoError(t, err, "launchTime %v", want)
	}
}

func TestAssertFinalState_Mismatch(t *testing.T) {
	result := resultFor(t, launch("c1", 500))

	err := assertFinalState(result, Assertion{
		Type:    AssertFinalState,
		Channel: "c1",
		Expect:  map[string]any{"speed": 999},
	})
	require.Error(t, err)

	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertFinalState, aerr.Type)
	assert.Equal(t, `c1.speed = "999"`, aerr.Expected)
	assert.Equal(t, `c1.speed = "500"`, aerr.Actual)
	assert.Len(t, aerr.Trace, 1)
}

func TestAssertFinalState_FirstMismatchBySortedKey(t *testing.T) {
	result := resultFor(t, launch("c1", 500))

	err := assertFinalState(result, Assertion{
		Type:    AssertFinalState,
		Channel: "c1",
		Expect:  map[string]any{"type": "Juno-I", "mission": "MERCURY"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1.mission")
}

func TestAssertFinalState_EntityNotFound(t *testing.T) {
	result := resultFor(t, launch("c1", 500))

	err := assertFinalState(result, Assertion{
		Type:    AssertFinalState,
		Channel: "zz",
		Expect:  map[string]any{"speed": 0},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity not found")
}

func TestAssertOutcomeCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertOutcomeCount(trace, Assertion{Outcome: "applied", Count: 2}))
	assert.NoError(t, assertOutcomeCount(trace, Assertion{Outcome: "rejected", Count: 0}))

	err := assertOutcomeCount(trace, Assertion{Outcome: "discarded", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 discarded deliveries")
	assert.Contains(t, err.Error(), "Actual: 1 discarded deliveries")
}

func TestAssertAppliedOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertAppliedOrder(trace, Assertion{Channel: "a", Seqs: []int64{1, 2}}))
	assert.NoError(t, assertAppliedOrder(trace, Assertion{Channel: "b", Seqs: []int64{1}}))
	assert.NoError(t, assertAppliedOrder(trace, Assertion{Channel: "none"}))

	err := assertAppliedOrder(trace, Assertion{Channel: "a", Seqs: []int64{2, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a applied [1 2]")
}

func TestAssertDistinctTypes_OrderInsensitive(t *testing.T) {
	result := &Result{Types: []string{"Falcon-9", "Titan-IV"}}

	assert.NoError(t, assertDistinctTypes(result, Assertion{Types: []string{"Titan-IV", "Falcon-9"}}))

	err := assertDistinctTypes(result, Assertion{Types: []string{"Falcon-9"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types [Falcon-9 Titan-IV]")
}

func TestAssertDistinctTypes_EmptyMatchesNone(t *testing.T) {
	assert.NoError(t, assertDistinctTypes(NewResult(), Assertion{}))
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := &Result{Trace: sampleTrace(), Types: []string{}}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOutcomeCount, Outcome: "buffered", Count: 1},
		{Type: AssertAppliedOrder, Channel: "a", Seqs: []int64{1, 2}},
		{Type: AssertDistinctTypes},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := &Result{Trace: sampleTrace(), Types: []string{}}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOutcomeCount, Outcome: "buffered", Count: 1},
		{Type: AssertOutcomeCount, Outcome: "applied", Count: 9},
		{Type: AssertAppliedOrder, Channel: "b", Seqs: []int64{}},
	})
	assert.Len(t, errs, 2)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "trace_contains"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `assertion[0]: unknown assertion type "trace_contains"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertAppliedOrder,
		Expected: "a applied [1 2]",
		Actual:   "a applied [1]",
		Trace:    sampleTrace()[:2],
	}

	want := "Assertion failed: applied_order\n" +
		"  Expected: a applied [1 2]\n" +
		"  Actual: a applied [1]\n" +
		"\nFull trace:\n" +
		"  [1] a #2 RocketSpeedIncreased -> buffered\n" +
		"  [2] b #1 RocketLaunched -> applied\n"
	assert.Equal(t, want, err.Error())
}

func TestAssertionError_NoTrace(t *testing.T) {
	err := &AssertionError{Type: AssertDistinctTypes, Expected: "x", Actual: "y"}
	assert.NotContains(t, err.Error(), "Full trace")
}

func TestStateField_Renders(t *testing.T) {
	s := entity.State{
		Speed:          -5,
		LastSeq:        7,
		MissionEndTime: time.Date(2022, 2, 2, 20, 0, 0, 0, time.FixedZone("", 3600)),
	}

	assert.Equal(t, "-5", stateField(s, "speed"))
	assert.Equal(t, "7", stateField(s, "lastMessageNumber"))
	assert.Equal(t, "2022-02-02T19:00:00Z", stateField(s, "missionEndTime"))
	assert.Equal(t, "", stateField(s, "launchTime"))
	assert.Equal(t, "false", stateField(s, "created"))
	assert.Equal(t, event.FormatTime(s.MissionEndTime), expectedField("missionEndTime", s.MissionEndTime))
}
