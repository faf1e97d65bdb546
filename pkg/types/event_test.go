package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		status   Status
		valid    bool
		terminal bool
	}{
		{StatusHeartbeat, true, false},
		{StatusError, true, true},
		{StatusCompletion, true, true},
		{"running", false, false},
		{"", false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.valid, c.status.Valid(), "Valid(%q)", c.status)
		assert.Equal(t, c.terminal, c.status.Terminal(), "Terminal(%q)", c.status)
	}
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "crawler:r1", SessionKey("crawler", "r1"))
	assert.Equal(t, "crawler:default", SessionKey("crawler", ""))
	assert.Equal(t, "crawler:default", Event{AgentID: "crawler"}.SessionKey())
}

func TestEffectiveAgentType(t *testing.T) {
	assert.Equal(t, "unknown", Event{}.EffectiveAgentType())
	assert.Equal(t, "indexer", Event{AgentType: "indexer"}.EffectiveAgentType())
}

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2026-03-01T12:30:00Z",
		"2026-03-01T12:30:00.000Z",
		"2026-03-01T14:30:00+02:00",
		"2026-03-01T12:30:00",
		"2026-03-01 12:30:00",
	} {
		got, ok := ParseTime(s)
		require.True(t, ok, "ParseTime(%q)", s)
		assert.True(t, got.Equal(want), "ParseTime(%q) = %v, want %v", s, got, want)
	}

	for _, s := range []string{"", "   ", "yesterday", "2026-13-45T99:00:00Z"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, "ParseTime(%q) should fail", s)
	}
}

func TestEvent_JSONFieldNames(t *testing.T) {
	d := 1500.0
	ev := Event{
		ID:         "e1",
		TS:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AgentID:    "a",
		RunID:      "r",
		Status:     StatusCompletion,
		DurationMs: &d,
		Progress:   json.RawMessage(`{"done":3}`),
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "a", m["agentId"])
	assert.Equal(t, "r", m["runId"])
	assert.Equal(t, 1500.0, m["durationMs"])
	assert.Equal(t, map[string]any{"done": 3.0}, m["progress"])
	assert.NotContains(t, m, "agentType")
	assert.NotContains(t, m, "meta")
}
