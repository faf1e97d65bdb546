package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// snapshotCollector turns one snapshot per scrape into gauges.
type snapshotCollector struct {
	src SnapshotSource

	logEvents   *prometheus.Desc
	sessions    *prometheus.Desc
	degraded    *prometheus.Desc
	successRate *prometheus.Desc
	completions *prometheus.Desc
	failures    *prometheus.Desc
	avgDuration *prometheus.Desc
	runsByType  *prometheus.Desc
}

func newSnapshotCollector(src SnapshotSource) *snapshotCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &snapshotCollector{
		src:         src,
		logEvents:   desc("log_events", "Valid events currently held in the event log."),
		sessions:    desc("sessions", "Running sessions by liveness state.", "state"),
		degraded:    desc("degraded", "1 when the overall status is degraded, else 0."),
		successRate: desc("success_rate_24h", "Completions over terminal events in the aggregation window."),
		completions: desc("completions_24h", "Completion events in the aggregation window."),
		failures:    desc("failures_24h", "Error events in the aggregation window."),
		avgDuration: desc("run_duration_avg_ms", "Mean resolved run duration in the aggregation window.", "agent_type"),
		runsByType:  desc("runs_24h", "Completed runs with a resolved duration in the aggregation window.", "agent_type"),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.logEvents, c.sessions, c.degraded, c.successRate,
		c.completions, c.failures, c.avgDuration, c.runsByType,
	} {
		ch <- d
	}
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()
	t := snap.Totals

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.logEvents, float64(t.Events))
	gauge(c.sessions, float64(t.ActiveSessions), StateActive)
	gauge(c.sessions, float64(t.StalledSessions), StateStalled)
	gauge(c.sessions, float64(t.PotentiallyStuckSessions), StateStuck)

	degraded := 0.0
	if snap.Status == types.OverallDegraded {
		degraded = 1
	}
	gauge(c.degraded, degraded)

	if snap.SuccessRate24h.Rate != nil {
		gauge(c.successRate, *snap.SuccessRate24h.Rate)
	}
	gauge(c.completions, float64(t.Completions24h))
	gauge(c.failures, float64(t.Failures24h))

	for _, d := range snap.AverageRunDurationByAgentType {
		gauge(c.avgDuration, float64(d.AvgDurationMs), d.AgentType)
		gauge(c.runsByType, float64(d.Runs), d.AgentType)
	}
}
