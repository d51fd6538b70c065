package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/telemetryd/internal/event"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(p event.Payload) (string, error) {
	if p == nil {
		p = event.Payload{}
	}
	data, err := event.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back to a payload.
func unmarshalPayload(data string) (event.Payload, error) {
	p := event.Payload{}
	if data == "" || data == "{}" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// parseTime is the inverse of event.FormatTime. The empty string is the
// zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
