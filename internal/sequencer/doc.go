// Package sequencer applies one entity's events to its state in strict
// sequence order, whatever order they arrive in.
//
// A Sequencer is a single state machine over one integer cursor (the
// entity's LastSeq) with three transition classes:
//
//	seq <= cursor      discard (stale or duplicate, not an error)
//	seq == cursor+1    apply, then drain the reorder buffer
//	seq >  cursor+1    buffer until the gap closes
//
// Draining pops the buffer minimum while it is either the next expected
// event (applied) or at or below the cursor (a stale duplicate, evicted).
// Every stale duplicate is therefore removed before any later event is
// considered, so repeated duplicate delivery cannot grow the buffer.
//
// Thread-safety: Accept and all readers are safe for concurrent use. One
// mutex per Sequencer serializes mutation of that entity only; different
// entities never contend. Readers receive value copies, so they never see
// a partially applied transition.
//
// The buffer is unbounded and has no timeout: an event whose predecessor
// never arrives waits forever.
package sequencer
