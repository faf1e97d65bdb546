package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// Build computes the complete health snapshot for events as of now. It is a
// pure function: the same inputs always produce the same snapshot.
func Build(events []types.Event, now time.Time, w Windows) types.Snapshot {
	sessions := Reconstruct(events, now)
	c := Classify(sessions, w)
	rate := SuccessRate(events, now, w)

	return types.Snapshot{
		Status:      OverallStatus(c, events, now, w),
		GeneratedAt: now,
		Windows:     w.Export(),
		Totals: types.Totals{
			Events:                   len(events),
			Sessions:                 len(sessions),
			ActiveSessions:           len(c.Active),
			StalledSessions:          c.Yellow,
			PotentiallyStuckSessions: c.Red,
			Failures24h:              rate.Error,
			Completions24h:           rate.Success,
		},
		ActiveSessions:                c.Active,
		StalledOrStuckSessions:        c.Stalled,
		RecentFailures:                recentFailures(events, w.RecentFailures),
		SuccessRate24h:                rate,
		AverageRunDurationByAgentType: AverageDurations(events, now, w),
	}
}

// recentFailures returns up to limit error events, newest first.
func recentFailures(events []types.Event, limit int) []types.Event {
	out := []types.Event{}
	for _, e := range events {
		if e.Status == types.StatusError {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.After(out[j].TS) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EventSource supplies the current contents of the event log.
type EventSource interface {
	Read() []types.Event
}

// Monitor computes snapshots from an event source on demand. It holds no
// derived state: every call re-reads the source.
//
// Monitor is safe for concurrent use.
type Monitor struct {
	src EventSource
	now func() time.Time // injectable for deterministic tests

	mu      sync.RWMutex
	windows Windows
}

// New creates a Monitor over src using w.
func New(src EventSource, w Windows) *Monitor {
	return &Monitor{src: src, now: time.Now, windows: w}
}

// Windows returns the thresholds currently in effect.
func (m *Monitor) Windows() Windows {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windows
}

// SetWindows replaces the thresholds used by subsequent calls.
func (m *Monitor) SetWindows(w Windows) {
	m.mu.Lock()
	m.windows = w
	m.mu.Unlock()
}

// Snapshot reads the log and builds a fresh snapshot stamped with the current time.
func (m *Monitor) Snapshot() types.Snapshot {
	return Build(m.src.Read(), m.now().UTC(), m.Windows())
}

// Sessions returns every reconstructed session, most recently seen first.
func (m *Monitor) Sessions() []types.Session {
	sessions := Reconstruct(m.src.Read(), m.now().UTC())
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastSeenAt.After(sessions[j].LastSeenAt)
	})
	return sessions
}

// Events returns logged events matching agentID and runID (empty matches
// any), newest first, at most limit of them.
func (m *Monitor) Events(agentID, runID string, limit int) []types.Event {
	events := m.src.Read()
	out := make([]types.Event, 0, len(events))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		e := events[i]
		if agentID != "" && e.AgentID != agentID {
			continue
		}
		if runID != "" && e.RunID != runID {
			continue
		}
		out = append(out, e)
	}
	return out
}
