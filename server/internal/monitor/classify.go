package monitor

import (
	"sort"
	"time"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// Classification is the result of Classify.
type Classification struct {
	Active  []types.Session
	Stalled []types.StalledSession

	// Yellow and Red count the stalled sessions by severity.
	Yellow int
	Red    int
}

// Classify splits the non-terminal sessions by how long they have been silent.
//
// A session with a terminal last status (completion or error) is finished and
// is never active, stalled or stuck. Active sessions are those silent for at
// most StuckAfter, ordered by silence ascending. Stalled sessions are those
// silent for more than StallAfter, ordered by silence descending; they are
// "red" past StuckAfter and "yellow" otherwise. A session silent between the
// two thresholds is therefore both active and stalled (yellow).
func Classify(sessions []types.Session, w Windows) Classification {
	stallMs := w.StallAfter.Milliseconds()
	stuckMs := w.StuckAfter.Milliseconds()

	c := Classification{
		Active:  []types.Session{},
		Stalled: []types.StalledSession{},
	}
	for _, s := range sessions {
		if s.LastStatus.Terminal() {
			continue
		}
		if s.SinceLastMs <= stuckMs {
			c.Active = append(c.Active, s)
		}
		if s.SinceLastMs > stallMs {
			sev := types.SeverityYellow
			if s.SinceLastMs > stuckMs {
				sev = types.SeverityRed
				c.Red++
			} else {
				c.Yellow++
			}
			c.Stalled = append(c.Stalled, types.StalledSession{Session: s, Severity: sev})
		}
	}

	sort.Slice(c.Active, func(i, j int) bool {
		a, b := c.Active[i], c.Active[j]
		if a.SinceLastMs != b.SinceLastMs {
			return a.SinceLastMs < b.SinceLastMs
		}
		return a.Key < b.Key
	})
	sort.Slice(c.Stalled, func(i, j int) bool {
		a, b := c.Stalled[i], c.Stalled[j]
		if a.SinceLastMs != b.SinceLastMs {
			return a.SinceLastMs > b.SinceLastMs
		}
		return a.Key < b.Key
	})
	return c
}

// OverallStatus is "degraded" when any session is stuck (red) or any error
// was reported inside the window, and "ok" otherwise.
func OverallStatus(c Classification, events []types.Event, now time.Time, w Windows) string {
	if c.Red > 0 {
		return types.OverallDegraded
	}
	for _, e := range events {
		if e.Status == types.StatusError && inWindow(e.TS, now, w.Window) {
			return types.OverallDegraded
		}
	}
	return types.OverallOK
}

// inWindow reports whether ts lies in [now-window, now].
func inWindow(ts, now time.Time, window time.Duration) bool {
	return !ts.Before(now.Add(-window)) && !ts.After(now)
}
