package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/event"
)

// Snapshot renders a result as canonical JSON: the scenario name, the
// trace and the final states. It is the golden file content.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, te := range result.Trace {
		m := map[string]any{
			"arrival": te.Arrival,
			"channel": te.Channel,
			"seq":     te.Seq,
			"kind":    te.Kind,
			"outcome": te.Outcome,
			"applied": int64s(te.Applied),
			"cursor":  te.Cursor,
			"pending": te.Pending,
		}
		if len(te.Errors) > 0 {
			m["errors"] = te.Errors
		}
		trace[i] = m
	}

	states := make([]any, len(result.States))
	for i, s := range result.States {
		states[i] = stateMap(s)
	}

	return event.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"trace":         trace,
		"states":        states,
	})
}

func stateMap(s entity.State) map[string]any {
	return map[string]any{
		"id":                s.ID,
		"type":              s.Type,
		"speed":             s.Speed,
		"mission":           s.Mission,
		"status":            s.Status,
		"launchTime":        event.FormatTime(s.LaunchTime),
		"missionEndTime":    event.FormatTime(s.MissionEndTime),
		"lastMessageNumber": s.LastSeq,
	}
}

func int64s(v []int64) []any {
	out := make([]any, len(v))
	for i, n := range v {
		out[i] = n
	}
	return out
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
