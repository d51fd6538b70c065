// Package api exposes the ingest service and entity snapshots over HTTP.
//
// Routes:
//
//	POST /messages          submit one telemetry message
//	GET  /rockets           list entities (?type=&sortBy=&orderBy=)
//	GET  /rockets/types     distinct entity types
//	GET  /rockets/{id}      one entity, 404 if unknown
//
// Every request gets an X-Request-ID (generated as a UUIDv7 when the client
// sends none) and one access-log line. POST /messages is optionally rate
// limited with a token bucket.
package api
