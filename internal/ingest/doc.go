// Package ingest is the submission boundary in front of the registry.
//
// Submit dispatches one decoded event, journals the arrival when a journal
// is configured and returns an Ack describing what the sequencer did.
// Replay rebuilds registries from a journal in arrival order and in
// sequence order and reports any entity whose two states disagree.
package ingest
