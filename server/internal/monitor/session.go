package monitor

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// Reconstruct groups events by session key and summarises each group as of
// now. The result is ordered by key. Input order does not matter.
func Reconstruct(events []types.Event, now time.Time) []types.Session {
	groups := lo.GroupBy(events, func(e types.Event) string { return e.SessionKey() })

	out := make([]types.Session, 0, len(groups))
	for key, group := range groups {
		out = append(out, summarize(key, group, now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// summarize builds one session summary. group must be non-empty.
func summarize(key string, group []types.Event, now time.Time) types.Session {
	sorted := make([]types.Event, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS.Before(sorted[j].TS) })

	first, last := sorted[0], sorted[len(sorted)-1]

	agentType := types.UnknownAgentType
	for _, e := range sorted {
		if e.AgentType != "" {
			agentType = e.AgentType
		}
	}

	return types.Session{
		Key:         key,
		AgentID:     last.AgentID,
		RunID:       last.RunID,
		AgentType:   agentType,
		FirstSeenAt: first.TS,
		LastSeenAt:  last.TS,
		LastStatus:  last.Status,
		Message:     last.Message,
		Progress:    last.Progress,
		EventCount:  len(sorted),
		UptimeMs:    now.Sub(first.TS).Milliseconds(),
		SinceLastMs: now.Sub(last.TS).Milliseconds(),
	}
}
