package monitor

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// SuccessRate counts in-window terminal events. Rate stays nil when there are
// none, so "no data" is never reported as 0% success.
func SuccessRate(events []types.Event, now time.Time, w Windows) types.SuccessRate {
	var r types.SuccessRate
	for _, e := range events {
		if !inWindow(e.TS, now, w.Window) {
			continue
		}
		switch e.Status {
		case types.StatusCompletion:
			r.Success++
		case types.StatusError:
			r.Error++
		}
	}
	r.Total = r.Success + r.Error
	if r.Total > 0 {
		rate := float64(r.Success) / float64(r.Total)
		r.Rate = &rate
	}
	return r
}

// AverageDurations averages the resolved duration of every in-window
// completion, grouped by agent type. Completions whose duration cannot be
// resolved are left out. The result is ordered by run count descending, then
// agent type ascending.
func AverageDurations(events []types.Event, now time.Time, w Windows) []types.AgentTypeDuration {
	bySession := lo.GroupBy(events, func(e types.Event) string { return e.SessionKey() })
	for _, group := range bySession {
		sort.SliceStable(group, func(i, j int) bool { return group[i].TS.Before(group[j].TS) })
	}

	type acc struct {
		runs  int
		total float64
	}
	byType := make(map[string]*acc)

	for _, e := range events {
		if e.Status != types.StatusCompletion || !inWindow(e.TS, now, w.Window) {
			continue
		}
		d, ok := resolveDuration(e, bySession[e.SessionKey()], w.DurationLookback)
		if !ok {
			continue
		}
		a := byType[e.EffectiveAgentType()]
		if a == nil {
			a = &acc{}
			byType[e.EffectiveAgentType()] = a
		}
		a.runs++
		a.total += d
	}

	out := make([]types.AgentTypeDuration, 0, len(byType))
	for agentType, a := range byType {
		out = append(out, types.AgentTypeDuration{
			AgentType:     agentType,
			Runs:          a.runs,
			AvgDurationMs: int64(math.Round(a.total / float64(a.runs))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Runs != out[j].Runs {
			return out[i].Runs > out[j].Runs
		}
		return out[i].AgentType < out[j].AgentType
	})
	return out
}

// resolveDuration returns the duration of completion c in milliseconds, trying
// in order: an explicit non-negative durationMs; ts minus a valid startedAt
// not after ts; ts minus the earliest other event of the same session at or
// before ts and within lookback. session must be sorted ascending by ts.
func resolveDuration(c types.Event, session []types.Event, lookback time.Duration) (float64, bool) {
	if c.DurationMs != nil && *c.DurationMs >= 0 {
		return *c.DurationMs, true
	}

	if started, ok := types.ParseTime(c.StartedAt); ok && !started.After(c.TS) {
		return float64(c.TS.Sub(started).Milliseconds()), true
	}

	floor := c.TS.Add(-lookback)
	for _, e := range session {
		if e.TS.Before(floor) || e.ID == c.ID {
			continue
		}
		if e.TS.After(c.TS) {
			break
		}
		return float64(c.TS.Sub(e.TS).Milliseconds()), true
	}
	return 0, false
}
