package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/telemetryd/internal/event"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Deliveries are submitted in the order listed, which is the arrival
	// order. Sequence numbers may be out of order, repeated or missing.
	Deliveries []Delivery `yaml:"deliveries"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Delivery is one message as it arrives at the ingest boundary.
type Delivery struct {
	Channel string `yaml:"channel"`
	Seq     int64  `yaml:"seq"`
	Type    string `yaml:"type"`

	// Time is an RFC 3339 timestamp. Empty means the next deterministic
	// clock tick.
	Time string `yaml:"time,omitempty"`

	// Message is the payload. Scalars only.
	Message map[string]any `yaml:"message,omitempty"`

	// Expect validates this delivery's effect. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected effect of one delivery.
type ExpectClause struct {
	// Outcome is applied, buffered, discarded or rejected.
	Outcome string `yaml:"outcome"`

	// Applied lists the sequence numbers folded in by this delivery.
	// Nil skips the check.
	Applied []int64 `yaml:"applied,omitempty"`

	Cursor  *int64 `yaml:"cursor,omitempty"`
	Pending *int   `yaml:"pending,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of final_state, outcome_count, applied_order or
	// distinct_types.
	Type string `yaml:"type"`

	// Channel selects the entity (final_state, applied_order).
	Channel string `yaml:"channel,omitempty"`

	// Expect contains expected state fields (final_state).
	// Subset match: only listed fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Outcome and Count are used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Seqs is the expected applied order (applied_order).
	Seqs []int64 `yaml:"seqs,omitempty"`

	// Types is the expected type set (distinct_types).
	Types []string `yaml:"types,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertOutcomeCount  = "outcome_count"
	AssertAppliedOrder  = "applied_order"
	AssertDistinctTypes = "distinct_types"
)

// OutcomeRejected marks a delivery the registry refused.
const OutcomeRejected = "rejected"

var knownOutcomes = map[string]bool{
	"applied":       true,
	"buffered":      true,
	"discarded":     true,
	OutcomeRejected: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under path, sorted.
// A file path is returned as is. A non-empty filter is matched against
// each file's base name without extension.
func FindScenarios(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Deliveries) == 0 {
		return fmt.Errorf("deliveries list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, d := range s.Deliveries {
		if d.Type == "" {
			return fmt.Errorf("deliveries[%d]: type is required", i)
		}
		if d.Time != "" {
			if _, err := time.Parse(time.RFC3339Nano, d.Time); err != nil {
				return fmt.Errorf("deliveries[%d]: time: %w", i, err)
			}
		}
		if _, err := convertMessage(d.Message); err != nil {
			return fmt.Errorf("deliveries[%d]: message: %w", i, err)
		}
		if d.Expect != nil && !knownOutcomes[d.Expect.Outcome] {
			return fmt.Errorf("deliveries[%d].expect: unknown outcome %q", i, d.Expect.Outcome)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Channel == "" {
			return fmt.Errorf("assertions[%d]: channel is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for key := range a.Expect {
			if !stateFields[key] {
				return fmt.Errorf("assertions[%d]: unknown state field %q", index, key)
			}
		}
	case AssertOutcomeCount:
		if !knownOutcomes[a.Outcome] {
			return fmt.Errorf("assertions[%d]: unknown outcome %q for outcome_count", index, a.Outcome)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertAppliedOrder:
		if a.Channel == "" {
			return fmt.Errorf("assertions[%d]: channel is required for applied_order", index)
		}
	case AssertDistinctTypes:
		// An empty list asserts that no entity has been created.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// convertMessage turns YAML-parsed scalars into a payload. Nulls are
// dropped, as an absent field.
func convertMessage(msg map[string]any) (event.Payload, error) {
	payload := make(event.Payload, len(msg))
	for key, val := range msg {
		switch v := val.(type) {
		case nil:
		case string:
			payload[key] = v
		case int:
			payload[key] = strconv.Itoa(v)
		case int64:
			payload[key] = strconv.FormatInt(v, 10)
		case float64:
			payload[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			payload[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("field %q: unsupported type %T", key, val)
		}
	}
	return payload, nil
}
