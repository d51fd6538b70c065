package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DomainEvent separates event identity hashes from any other hash family.
// The version suffix leaves room for an algorithm migration.
const DomainEvent = "telemetryd/event/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalMap returns the event as a map suitable for MarshalCanonical.
// The timestamp is rendered in RFC 3339 with nanoseconds, in UTC.
func (e Event) CanonicalMap() map[string]any {
	payload := e.Payload
	if payload == nil {
		payload = Payload{}
	}
	return map[string]any{
		"entity_id": e.EntityID,
		"seq":       e.Seq,
		"kind":      e.Tag(),
		"payload":   payload,
		"time":      FormatTime(e.Time),
	}
}

// ID computes the content-addressed identity of an event.
// Two deliveries of the same message produce the same ID.
func (e Event) ID() (string, error) {
	canonical, err := MarshalCanonical(e.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// FormatTime renders t the way canonical output and the journal store it.
// The zero time renders as the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
