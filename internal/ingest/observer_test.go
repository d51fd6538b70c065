package ingest

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/registry"
	"github.com/roach88/telemetryd/internal/testutil"
)

func TestLogObserver_LogsNotableTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reg := registry.New(registry.WithObserver(NewLogObserver(logger)))

	for _, ev := range []event.Event{
		testutil.ChangeSpeed(3, "abc", 1),
		testutil.Launch("abc", 500),
		testutil.ChangeSpeed(2, "abc", 1),
		testutil.Explode(4, "abc", "PRESSURE_VESSEL_FAILURE"),
		testutil.Launch("abc", 500),
		event.New("abc", 5, event.TagIncrease, event.Payload{}, testutil.Epoch),
	} {
		_, err := reg.Dispatch(ev)
		assert.NoError(t, err)
	}

	out := buf.String()
	assert.Contains(t, out, "level=WARN msg=\"gap detected, event buffered\"")
	assert.Contains(t, out, "level=INFO msg=\"entity created\"")
	assert.Contains(t, out, "level=WARN msg=\"entity terminated\"")
	assert.Contains(t, out, "reason=PRESSURE_VESSEL_FAILURE")
	assert.Contains(t, out, "level=INFO msg=\"stale event discarded\"")
	assert.Contains(t, out, "level=ERROR msg=\"event payload malformed\"")
	assert.NotContains(t, out, "event applied", "routine applies log at debug")
}

func TestLogObserver_TerminalBeforeCreationIsRoutine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := registry.New(registry.WithObserver(NewLogObserver(logger)))

	_, err := reg.Dispatch(testutil.Explode(1, "abc", "EARLY"))
	assert.NoError(t, err)

	assert.NotContains(t, buf.String(), "entity terminated")
	assert.Contains(t, buf.String(), "event applied")
}
