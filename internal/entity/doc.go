// Package entity holds one entity's aggregate state and the pure rule for
// folding a single in-order event into it.
//
// Apply is only defined for sequence-adjacent events: the caller (the
// sequencer) guarantees ev.Seq == s.LastSeq+1. Every call consumes exactly
// one sequence number, even when the event is unrecognized, arrives before
// creation, or carries a malformed payload. A consumed-but-failed event is
// reported through a *PayloadError alongside the advanced state so that a
// single bad message never stalls its entity.
package entity
