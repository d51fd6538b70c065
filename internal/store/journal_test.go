package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/testutil"
)

func TestWriteArrival_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := testutil.Launch("abc123", 500)
	want := createTestArrival(t, 1, ev, "applied")
	require.NoError(t, s.WriteArrival(ctx, want))

	got, err := s.ReadArrival(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, want.EventID, got.EventID)
	assert.Equal(t, "abc123", got.EntityID)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, event.TagCreated, got.Kind)
	assert.Equal(t, ev.Payload, got.Payload)
	assert.True(t, ev.Time.Equal(got.EventTime))
	assert.Equal(t, "applied", got.Outcome)
	assert.Equal(t, "req-test", got.RequestID)

	// The reconstructed event hashes to the same ID.
	id, err := got.Event().ID()
	require.NoError(t, err)
	assert.Equal(t, want.EventID, id)
}

func TestWriteArrival_KeepsRawTag(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := event.New("abc", 2, "rocketspeedincreased", event.Payload{"by": "1"}, testutil.Epoch)
	require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, 1, ev, "buffered")))

	got, err := s.ReadArrival(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "rocketspeedincreased", got.Kind)
	assert.Equal(t, event.KindIncrease, got.Event().Kind)
}

func TestWriteArrival_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestArrival(t, 7, testutil.Launch("abc", 1), "applied")
	require.NoError(t, s.WriteArrival(ctx, a))
	require.NoError(t, s.WriteArrival(ctx, a))

	n, err := s.CountArrivals(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWriteArrival_RejectsInvalidSeq(t *testing.T) {
	s := createTestStore(t)

	a := createTestArrival(t, 1, testutil.Launch("abc", 1), "applied")
	a.Seq = 0
	assert.Error(t, s.WriteArrival(context.Background(), a))
}

func TestReadArrival_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadArrival(context.Background(), 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadArrivals_Orders(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []struct {
		ev      event.Event
		outcome string
	}{
		{testutil.ChangeSpeed(3, "b", 1), "buffered"},
		{testutil.Launch("a", 10), "applied"},
		{testutil.ChangeSpeed(2, "b", 1), "buffered"},
		{testutil.Launch("b", 10), "applied"},
		{testutil.ChangeSpeed(2, "a", 1), "applied"},
	}
	for i, r := range rows {
		require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, int64(i+1), r.ev, r.outcome)))
	}

	byArrival, err := s.ReadArrivals(ctx, "", ByArrival)
	require.NoError(t, err)
	require.Len(t, byArrival, 5)
	for i, a := range byArrival {
		assert.Equal(t, int64(i+1), a.Arrival)
	}

	bySeq, err := s.ReadArrivals(ctx, "", BySeq)
	require.NoError(t, err)
	var keys []string
	for _, a := range bySeq {
		keys = append(keys, a.Event().String())
	}
	assert.Equal(t, []string{
		rows[1].ev.String(), rows[4].ev.String(),
		rows[3].ev.String(), rows[2].ev.String(), rows[0].ev.String(),
	}, keys)

	onlyB, err := s.ReadArrivals(ctx, "b", BySeq)
	require.NoError(t, err)
	require.Len(t, onlyB, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{onlyB[0].Seq, onlyB[1].Seq, onlyB[2].Seq})
}

func TestReadArrivals_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadArrivals(context.Background(), "missing", ByArrival)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListEntitiesAndCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	last, err := s.MaxArrival(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, 1, testutil.Launch("zeta", 1), "applied")))
	require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, 2, testutil.Launch("alpha", 1), "applied")))
	require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, 3, testutil.ChangeSpeed(2, "alpha", 1), "applied")))

	ids, err := s.ListEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	n, err := s.CountArrivals(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	last, err = s.MaxArrival(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestPayload_CanonicalInJournal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := event.New("abc", 1, event.TagCreated, event.Payload{
		"type": "Falcon-9", "mission": "ARTEMIS", "launchSpeed": "500",
	}, testutil.Epoch)
	require.NoError(t, s.WriteArrival(ctx, createTestArrival(t, 1, ev, "applied")))

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT payload FROM arrivals WHERE arrival = 1").Scan(&raw))
	assert.Equal(t, `{"launchSpeed":"500","mission":"ARTEMIS","type":"Falcon-9"}`, raw)
}
