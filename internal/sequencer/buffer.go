package sequencer

import "github.com/roach88/telemetryd/internal/event"

// buffered is one reorder-buffer entry. n is the insertion counter, so
// among copies of the same Seq the first one buffered is popped first.
type buffered struct {
	ev event.Event
	n  uint64
}

// reorderBuffer is a min-heap of pending events ordered by (Seq, n).
// It implements container/heap.Interface; use heap.Push and heap.Pop.
// Events with equal Seq may coexist.
type reorderBuffer []buffered

func (b reorderBuffer) Len() int { return len(b) }
func (b reorderBuffer) Less(i, j int) bool {
	if b[i].ev.Seq != b[j].ev.Seq {
		return b[i].ev.Seq < b[j].ev.Seq
	}
	return b[i].n < b[j].n
}
func (b reorderBuffer) Swap(i, j int) { b[i], b[j] = b[j], b[i] }

func (b *reorderBuffer) Push(x any) {
	*b = append(*b, x.(buffered))
}

func (b *reorderBuffer) Pop() any {
	old := *b
	n := len(old)
	e := old[n-1]
	// Clear the slot so the backing array does not pin the payload map.
	old[n-1] = buffered{}
	*b = old[:n-1]
	return e
}

// peek returns the minimum without removing it. Callers check Len first.
func (b reorderBuffer) peek() event.Event {
	return b[0].ev
}
