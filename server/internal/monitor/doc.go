// Package monitor derives the agent health model from the raw event log.
//
// session.go groups events into per-run sessions (key "agentId:runId").
// classify.go splits non-terminal sessions into active and stalled/stuck
// using the stall and stuck thresholds, and decides the overall status.
// aggregate.go computes the windowed success rate and the average run
// duration per agent type.
// snapshot.go composes the three into a types.Snapshot.
//
// Every function here is pure over (events, now, windows): nothing is cached
// between calls, and callers pass now explicitly so tests are deterministic.
// Monitor binds those functions to an event source and a clock.
package monitor
