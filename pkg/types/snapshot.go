package types

import (
	"encoding/json"
	"time"
)

// Overall snapshot statuses.
const (
	OverallOK       = "ok"
	OverallDegraded = "degraded"
)

// Severities assigned to stalled or stuck sessions.
const (
	SeverityYellow = "yellow"
	SeverityRed    = "red"
)

// Session is the derived summary of one agent run. Sessions are never persisted.
type Session struct {
	Key         string          `json:"key"`
	AgentID     string          `json:"agentId"`
	RunID       string          `json:"runId,omitempty"`
	AgentType   string          `json:"agentType"`
	FirstSeenAt time.Time       `json:"firstSeenAt"`
	LastSeenAt  time.Time       `json:"lastSeenAt"`
	LastStatus  Status          `json:"lastStatus"`
	Message     string          `json:"message,omitempty"`
	Progress    json.RawMessage `json:"progress,omitempty"`
	EventCount  int             `json:"eventCount"`
	UptimeMs    int64           `json:"uptimeMs"`
	SinceLastMs int64           `json:"sinceLastMs"`
}

// StalledSession is a non-terminal session that has been silent past the stall
// threshold, tagged with its severity.
type StalledSession struct {
	Session
	Severity string `json:"severity"`
}

// Windows exposes the thresholds a snapshot was computed with.
type Windows struct {
	StallMs  int64 `json:"stallMs"`
	StuckMs  int64 `json:"stuckMs"`
	WindowMs int64 `json:"windowMs"`
}

// Totals holds the headline counts of a snapshot.
type Totals struct {
	Events                   int `json:"events"`
	Sessions                 int `json:"sessions"`
	ActiveSessions           int `json:"activeSessions"`
	StalledSessions          int `json:"stalledSessions"`
	PotentiallyStuckSessions int `json:"potentiallyStuckSessions"`
	Failures24h              int `json:"failures24h"`
	Completions24h           int `json:"completions24h"`
}

// SuccessRate is the terminal-event success ratio over the aggregation window.
// Rate is nil when no terminal events fall in the window.
type SuccessRate struct {
	Success int      `json:"success"`
	Error   int      `json:"error"`
	Total   int      `json:"total"`
	Rate    *float64 `json:"rate"`
}

// AgentTypeDuration is the average resolved run duration for one agent type.
type AgentTypeDuration struct {
	AgentType     string `json:"agentType"`
	Runs          int    `json:"runs"`
	AvgDurationMs int64  `json:"avgDurationMs"`
}

// Snapshot is one deterministic computation of the full health model.
type Snapshot struct {
	Status                        string              `json:"status"`
	GeneratedAt                   time.Time           `json:"generatedAt"`
	Windows                       Windows             `json:"windows"`
	Totals                        Totals              `json:"totals"`
	ActiveSessions                []Session           `json:"activeSessions"`
	StalledOrStuckSessions        []StalledSession    `json:"stalledOrStuckSessions"`
	RecentFailures                []Event             `json:"recentFailures"`
	SuccessRate24h                SuccessRate         `json:"successRate24h"`
	AverageRunDurationByAgentType []AgentTypeDuration `json:"averageRunDurationByAgentType"`
}
