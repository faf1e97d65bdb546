// Package reporter is the HTTP client agents use to talk to agentpulse-server.
//
// Send posts one health event and returns the stored copy. Snapshot fetches
// the current health snapshot. Requests are never retried; a failed send is
// returned to the caller, who decides whether the next heartbeat is enough.
package reporter
