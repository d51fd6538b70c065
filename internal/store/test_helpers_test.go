package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArrival builds a journal row for ev with a fixed record time.
func createTestArrival(t *testing.T, arrival int64, ev event.Event, outcome string) Arrival {
	t.Helper()
	a, err := NewArrival(arrival, ev, outcome, "req-test", testutil.Epoch.Add(time.Duration(arrival)*time.Millisecond))
	if err != nil {
		t.Fatalf("NewArrival() failed: %v", err)
	}
	return a
}
