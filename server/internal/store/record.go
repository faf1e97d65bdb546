package store

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// decodeRecord validates and coerces one stored record. It returns false when
// the record must be skipped: a required field is missing or mistyped, the
// timestamp does not parse, or the status is unknown. Optional fields with
// the wrong type are dropped rather than failing the record.
func decodeRecord(raw json.RawMessage) (types.Event, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return types.Event{}, false
	}

	id, ok := stringField(fields, "id")
	if !ok || id == "" {
		return types.Event{}, false
	}
	tsRaw, ok := stringField(fields, "ts")
	if !ok {
		return types.Event{}, false
	}
	ts, ok := types.ParseTime(tsRaw)
	if !ok {
		return types.Event{}, false
	}
	agentID, ok := stringField(fields, "agentId")
	if !ok || agentID == "" {
		return types.Event{}, false
	}
	status, ok := stringField(fields, "status")
	if !ok || !types.Status(status).Valid() {
		return types.Event{}, false
	}

	ev := types.Event{
		ID:       id,
		TS:       ts,
		AgentID:  agentID,
		Status:   types.Status(status),
		Progress: nullToEmpty(fields["progress"]),
		Meta:     nullToEmpty(fields["meta"]),
	}
	ev.AgentType, _ = stringField(fields, "agentType")
	ev.RunID, _ = stringField(fields, "runId")
	ev.Message, _ = stringField(fields, "message")
	ev.StartedAt, _ = stringField(fields, "startedAt")
	if d, ok := numberField(fields, "durationMs"); ok {
		ev.DurationMs = &d
	}
	return ev, true
}

// ParseInput decodes an ingestion body with the same tolerance Read applies
// to stored records. The body must be a JSON object. Fields of the wrong type
// are dropped, so a mistyped ts falls back to the submission time and a
// mistyped durationMs is ignored; a missing or mistyped agentId or status is
// then rejected by Append.
func ParseInput(body []byte) (types.Input, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return types.Input{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidEvent)
	}

	var in types.Input
	in.TS, _ = stringField(fields, "ts")
	in.AgentID, _ = stringField(fields, "agentId")
	in.AgentType, _ = stringField(fields, "agentType")
	in.RunID, _ = stringField(fields, "runId")
	in.Message, _ = stringField(fields, "message")
	in.StartedAt, _ = stringField(fields, "startedAt")
	if status, ok := stringField(fields, "status"); ok {
		in.Status = types.Status(status)
	}
	if d, ok := numberField(fields, "durationMs"); ok {
		in.DurationMs = &d
	}
	in.Progress = nullToEmpty(fields["progress"])
	in.Meta = nullToEmpty(fields["meta"])
	return in, nil
}

// stringField returns fields[key] when it is a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// numberField returns fields[key] when it is a finite JSON number.
func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
