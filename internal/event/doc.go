// Package event defines the telemetry event types shared by every other
// package in telemetryd.
//
// All other internal packages import event; event imports nothing internal.
//
// Key design constraints:
//   - Ordering uses Seq only, never the producer timestamp
//   - Kind is a closed enumeration resolved once at ingress
//   - Identical deliveries share a content-addressed ID (see hash.go)
package event
