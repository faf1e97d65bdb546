package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lifecycle marker carried by every health event.
type Status string

// Event statuses. Heartbeat is the only non-terminal status.
const (
	StatusHeartbeat  Status = "heartbeat"
	StatusError      Status = "error"
	StatusCompletion Status = "completion"
)

// DefaultRunID is used in session keys for events that carry no run ID.
const DefaultRunID = "default"

// UnknownAgentType is reported wherever an event omits its agent type.
const UnknownAgentType = "unknown"

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusHeartbeat, StatusError, StatusCompletion:
		return true
	default:
		return false
	}
}

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusError || s == StatusCompletion
}

// Event is one persisted health event. Events are immutable once written.
type Event struct {
	ID        string    `json:"id"`
	TS        time.Time `json:"ts"`
	AgentID   string    `json:"agentId"`
	AgentType string    `json:"agentType,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`

	// Progress and Meta are opaque to the monitor and carried through as-is.
	Progress json.RawMessage `json:"progress,omitempty"`
	Meta     json.RawMessage `json:"meta,omitempty"`

	// DurationMs and StartedAt are optional hints read only for completions.
	DurationMs *float64 `json:"durationMs,omitempty"`
	StartedAt  string   `json:"startedAt,omitempty"`
}

// SessionKey returns the key that groups events of one agent run.
func (e Event) SessionKey() string {
	return SessionKey(e.AgentID, e.RunID)
}

// EffectiveAgentType returns the agent type, or "unknown" when it is empty.
func (e Event) EffectiveAgentType() string {
	if e.AgentType == "" {
		return UnknownAgentType
	}
	return e.AgentType
}

// SessionKey builds "agentId:runId", substituting "default" for an empty run ID.
func SessionKey(agentID, runID string) string {
	if runID == "" {
		runID = DefaultRunID
	}
	return agentID + ":" + runID
}

// Input is the ingestion payload submitted by an agent. Unknown JSON fields are
// ignored by the decoder; ID is always assigned by the server.
type Input struct {
	TS         string          `json:"ts,omitempty"`
	AgentID    string          `json:"agentId"`
	AgentType  string          `json:"agentType,omitempty"`
	RunID      string          `json:"runId,omitempty"`
	Status     Status          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Progress   json.RawMessage `json:"progress,omitempty"`
	DurationMs *float64        `json:"durationMs,omitempty"`
	StartedAt  string          `json:"startedAt,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. Timestamps without a zone are read
// as UTC. The second return value is false when s is empty or unparsable.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
