// Package metrics exposes agent health in the Prometheus text format.
//
// Every scrape of /metrics computes a fresh snapshot, so gauges always agree
// with GET /api/v1/health. Ingestion outcomes are counted separately as they
// happen. A private registry is used; the process and Go runtime collectors
// are registered alongside.
package metrics
