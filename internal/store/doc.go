// Package store provides a SQLite-backed arrival journal.
//
// The journal is append-only: one row per event delivered to the registry,
// recorded with its arrival number and the sequencing outcome. It exists for
// audit and offline replay. The running service never reads it back into
// live state.
//
// # Ordering
//
//   - arrival INTEGER is the primary key and the delivery order
//   - seq INTEGER is the entity's own sequence number
//   - all queries order by one of them, never by timestamps
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Payloads are stored as canonical JSON produced by event.MarshalCanonical,
// so identical deliveries are byte-identical in the journal.
package store
