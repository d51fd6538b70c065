package sequencer

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/testutil"
)

func TestSequencer_ConcurrentIdenticalDeltaAppliedOnce(t *testing.T) {
	s := New("123abc")
	s.Accept(testutil.Launch("123abc", 500))

	start := make(chan struct{})
	results := make(chan Result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- s.Accept(testutil.ChangeSpeed(2, "123abc", 4000))
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	outcomes := map[Outcome]int{}
	for res := range results {
		outcomes[res.Outcome]++
	}
	assert.Equal(t, 1, outcomes[OutcomeApplied])
	assert.Equal(t, 1, outcomes[OutcomeDiscarded])
	assert.Equal(t, int64(4500), s.Snapshot().Speed)
}

func TestSequencer_ConcurrentAdjacentDeltasConverge(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := New("123abc")
		s.Accept(testutil.Launch("123abc", 500))

		start := make(chan struct{})
		var wg sync.WaitGroup
		for _, ev := range []event.Event{
			testutil.ChangeSpeed(2, "123abc", 4000),
			testutil.ChangeSpeed(3, "123abc", -5000),
		} {
			wg.Add(1)
			go func(ev event.Event) {
				defer wg.Done()
				<-start
				s.Accept(ev)
			}(ev)
		}
		close(start)
		wg.Wait()

		state := s.Snapshot()
		require.Equal(t, int64(-500), state.Speed, "iteration %d", i)
		require.Equal(t, int64(3), state.LastSeq, "iteration %d", i)
		require.Equal(t, 0, s.Pending(), "iteration %d", i)
	}
}

func TestSequencer_ConcurrentShuffledReplicas(t *testing.T) {
	const (
		replicas = 8
		events   = 200
	)

	stream := []event.Event{testutil.Launch("123abc", 0)}
	var want int64
	for seq := int64(2); seq <= events; seq++ {
		delta := seq%7 - 3
		want += delta
		stream = append(stream, testutil.ChangeSpeed(seq, "123abc", delta))
	}

	s := New("123abc")
	var wg sync.WaitGroup
	for r := 0; r < replicas; r++ {
		shuffled := make([]event.Event, len(stream))
		copy(shuffled, stream)
		rng := rand.New(rand.NewSource(int64(r)))
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		wg.Add(1)
		go func(evs []event.Event) {
			defer wg.Done()
			for _, ev := range evs {
				s.Accept(ev)
			}
		}(shuffled)
	}
	wg.Wait()

	state := s.Snapshot()
	assert.Equal(t, want, state.Speed)
	assert.Equal(t, int64(events), state.LastSeq)
	assert.Equal(t, 0, s.Pending())
}

func TestSequencer_ConcurrentReadersSeeWholeTransitions(t *testing.T) {
	s := New("123abc")
	s.Accept(testutil.Launch("123abc", 0))

	done := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				// Every increase is +1 starting from 0 at seq 1, so a whole
				// transition always satisfies Speed == LastSeq-1.
				state := s.Snapshot()
				if state.Speed != state.LastSeq-1 {
					t.Errorf("torn read: speed=%d seq=%d", state.Speed, state.LastSeq)
					return
				}
			}
		}()
	}

	for seq := int64(2); seq <= 500; seq++ {
		s.Accept(testutil.ChangeSpeed(seq, "123abc", 1))
	}
	close(done)
	readers.Wait()
}
