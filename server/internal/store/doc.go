// Package store is the durable event log behind the health monitor. It keeps
// at most MaxEvents raw health events in a single JSON array file and rewrites
// that file atomically (temp file, fsync, rename) on every append, so readers
// always see either the complete previous log or the complete new one.
//
// Reads are permissive: each record is validated on its own and skipped when
// it does not conform, and a missing or unparsable file reads as an empty log.
package store
