// Package harness runs telemetry conformance scenarios.
//
// A scenario lists deliveries in arrival order and assertions on the
// outcome. The harness submits every delivery through a fresh registry and
// ingest service backed by an in-memory journal, records one trace event
// per delivery, and checks that a replay of the journal reproduces the
// live states.
//
// # Scenario Format
//
//	name: out_of_order_launch
//	description: "Increase arrives before launch"
//	deliveries:
//	  - channel: c1
//	    seq: 2
//	    type: RocketSpeedIncreased
//	    message: { by: 3000 }
//	    expect: { outcome: buffered, cursor: 0, pending: 1 }
//	  - channel: c1
//	    seq: 1
//	    type: RocketLaunched
//	    message: { type: Falcon-9, launchSpeed: 500, mission: ARTEMIS }
//	    expect: { outcome: applied, applied: [1, 2] }
//	assertions:
//	  - type: final_state
//	    channel: c1
//	    expect: { speed: 3500, lastMessageNumber: 2 }
//
// Message values are scalars; numbers and booleans are carried as their
// decimal text, the way the HTTP boundary coerces them. Deliveries without
// a time are stamped by testutil.DeterministicClock.
//
// # Assertion Types
//
//   - final_state: fields of one entity's final state (subset match)
//   - outcome_count: number of deliveries with the given outcome
//   - applied_order: sequence numbers applied to a channel, in order
//   - distinct_types: the registry's distinct classification values
//
// # Golden Traces
//
// RunWithGolden renders the trace and final states as canonical JSON and
// compares them against testdata/golden/<name>.golden.
package harness
