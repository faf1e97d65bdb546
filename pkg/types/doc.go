// Package types defines shared Go types used by both the agent and server.
// These are the canonical JSON representations of agent health telemetry:
// the raw events agents report and the derived snapshot the server returns.
package types
