package monitor

import (
	"time"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// Default thresholds.
const (
	DefaultStallAfter       = 10 * time.Minute
	DefaultStuckAfter       = 15 * time.Minute
	DefaultWindow           = 24 * time.Hour
	DefaultDurationLookback = 7 * 24 * time.Hour
	DefaultRecentFailures   = 25
)

// Windows holds the time thresholds and limits used to classify and aggregate.
type Windows struct {
	// StallAfter is the silence after which a non-terminal session is stalled.
	StallAfter time.Duration

	// StuckAfter is the silence after which a non-terminal session is stuck.
	StuckAfter time.Duration

	// Window is the trailing aggregation window for rates and durations.
	Window time.Duration

	// DurationLookback bounds how far back a completion's session start is
	// searched when its duration has to be inferred.
	DurationLookback time.Duration

	// RecentFailures caps the number of error events listed in a snapshot.
	RecentFailures int
}

// DefaultWindows returns the standard 10m/15m/24h thresholds.
func DefaultWindows() Windows {
	return Windows{
		StallAfter:       DefaultStallAfter,
		StuckAfter:       DefaultStuckAfter,
		Window:           DefaultWindow,
		DurationLookback: DefaultDurationLookback,
		RecentFailures:   DefaultRecentFailures,
	}
}

// Export converts w to its JSON form.
func (w Windows) Export() types.Windows {
	return types.Windows{
		StallMs:  w.StallAfter.Milliseconds(),
		StuckMs:  w.StuckAfter.Milliseconds(),
		WindowMs: w.Window.Milliseconds(),
	}
}
