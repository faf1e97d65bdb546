package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentpulse/agentpulse/pkg/types"
)

const namespace = "agentpulse"

// Session states used as the "state" label of agentpulse_sessions.
const (
	StateActive  = "active"
	StateStalled = "stalled"
	StateStuck   = "stuck"
)

// SnapshotSource computes the current health snapshot.
type SnapshotSource interface {
	Snapshot() types.Snapshot
}

// Metrics owns the registry behind /metrics.
type Metrics struct {
	registry *prometheus.Registry
	ingest   *prometheus.CounterVec
}

// New registers the snapshot collector for src and the ingestion counter.
// results pre-creates counter series so they export 0 before the first event.
func New(src SnapshotSource, results ...string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_events_total",
			Help:      "Ingestion requests by outcome.",
		}, []string{"result"}),
	}
	for _, r := range results {
		m.ingest.WithLabelValues(r)
	}

	m.registry.MustRegister(
		m.ingest,
		newSnapshotCollector(src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveIngest counts one ingestion request with the given outcome.
func (m *Metrics) ObserveIngest(result string) {
	m.ingest.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
