// Package metrics exports sequencing counters through OpenTelemetry.
//
// Recorder implements sequencer.Observer, so wiring it into a registry is
// enough to count every applied, buffered, discarded, evicted and failed
// event. Provider owns the SDK meter provider and, when an OTLP endpoint is
// configured, a periodic gRPC exporter.
package metrics
