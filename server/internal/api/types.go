package api

import "github.com/agentpulse/agentpulse/pkg/types"

// Ingest outcomes reported to an IngestRecorder.
const (
	IngestAccepted = "accepted"
	IngestRejected = "rejected"
	IngestFailed   = "failed"
)

// Appender persists ingested events.
type Appender interface {
	Append(in types.Input) (types.Event, error)
}

// IngestRecorder observes the outcome of every ingestion request.
type IngestRecorder interface {
	ObserveIngest(result string)
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
