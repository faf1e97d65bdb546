// Package api implements the HTTP REST API for agentpulse-server.
//
// New(store, monitor, recorder, maxEvents) returns an http.Handler that serves:
//
//	POST /api/v1/events     ingest one health event; 201 with the stored event,
//	                         400 on malformed JSON or validation failure, 500 on write failure
//	GET  /api/v1/events     raw events newest first; ?agentId=&runId=&limit=
//	GET  /api/v1/health     full health snapshot (types.Snapshot)
//	GET  /api/v1/sessions   every reconstructed session, most recently seen first
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for unsupported methods
//   - Compute responses from the event log at request time; nothing is cached
//
// No external HTTP framework is used.
package api
