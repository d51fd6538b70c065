// Package registry maps entity ids to their sequencers.
//
// A Registry is an explicit value owned by whoever boots the process; there
// is no package-level instance. Sequencers are created lazily on the first
// event for an id, exactly once even when several callers race on that
// first event, and are never removed.
//
// The registry lock guards only the id → sequencer map. Event application
// happens under each sequencer's own lock, so entities never contend with
// each other.
package registry
