package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/agentpulse/agentpulse/pkg/types"
	"github.com/agentpulse/agentpulse/server/internal/api"
	"github.com/agentpulse/agentpulse/server/internal/monitor"
	"github.com/agentpulse/agentpulse/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

// countingRecorder records ingestion outcomes.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) ObserveIngest(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[result]++
}

func (c *countingRecorder) get(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[result]
}

type fixture struct {
	h   http.Handler
	st  *store.Store
	rec *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(afero.NewMemMapFs(), "/data/events.json", 50)
	rec := &countingRecorder{}
	mon := monitor.New(st, monitor.DefaultWindows())
	return &fixture{h: api.New(st, mon, rec, st.MaxEvents()), st: st, rec: rec}
}

func (f *fixture) seed(t *testing.T, inputs ...types.Input) {
	t.Helper()
	for _, in := range inputs {
		if _, err := f.st.Append(in); err != nil {
			t.Fatalf("seed Append: %v", err)
		}
	}
}

func ago(d time.Duration) string {
	return time.Now().Add(-d).UTC().Format(time.RFC3339Nano)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- POST /api/v1/events ----------------------------------------------------

func TestIngest_Accepted(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.h, "/api/v1/events", `{
		"agentId": "crawler-7",
		"agentType": "crawler",
		"runId": "run-42",
		"status": "heartbeat",
		"message": "page 3 of 10",
		"progress": 0.3,
		"meta": {"host": "worker-1"},
		"unknownField": "dropped"
	}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	var ev map[string]interface{}
	decode(t, rr, &ev)
	if ev["id"] == "" || ev["id"] == nil {
		t.Error("id: missing")
	}
	if ev["ts"] == "" || ev["ts"] == nil {
		t.Error("ts: missing")
	}
	if ev["agentId"] != "crawler-7" {
		t.Errorf("agentId: got %v", ev["agentId"])
	}
	if ev["progress"].(float64) != 0.3 {
		t.Errorf("progress: got %v", ev["progress"])
	}
	if _, ok := ev["unknownField"]; ok {
		t.Error("unknownField should be discarded")
	}

	if n := len(f.st.Read()); n != 1 {
		t.Errorf("log size: got %d, want 1", n)
	}
	if f.rec.get(api.IngestAccepted) != 1 {
		t.Errorf("accepted count: got %d, want 1", f.rec.get(api.IngestAccepted))
	}
}

func TestIngest_RejectsInvalidStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, types.Input{AgentID: "a", Status: types.StatusHeartbeat})

	rr := post(t, f.h, "/api/v1/events", `{"agentId":"a","status":"paused"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["error"] == nil {
		t.Error("error: missing from body")
	}
	if n := len(f.st.Read()); n != 1 {
		t.Errorf("log size after rejected write: got %d, want 1", n)
	}
	if f.rec.get(api.IngestRejected) != 1 {
		t.Errorf("rejected count: got %d, want 1", f.rec.get(api.IngestRejected))
	}
}

func TestIngest_RejectsMissingAgent(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.h, "/api/v1/events", `{"status":"heartbeat"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if n := len(f.st.Read()); n != 0 {
		t.Errorf("log size: got %d, want 0", n)
	}
}

func TestIngest_RejectsMalformedJSON(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{`, `[]`, `{"agentId": 12, "status": "heartbeat"}`, ``} {
		rr := post(t, f.h, "/api/v1/events", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rr.Code)
		}
	}
	if n := len(f.st.Read()); n != 0 {
		t.Errorf("log size: got %d, want 0", n)
	}
}

func TestIngest_NonStringTimestampUsesSubmissionTime(t *testing.T) {
	f := newFixture(t)
	before := time.Now().Add(-time.Second)

	rr := post(t, f.h, "/api/v1/events", `{"agentId":"a","status":"heartbeat","ts":1700000000000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var ev types.Event
	decode(t, rr, &ev)
	if ev.TS.Before(before) || ev.TS.After(time.Now().Add(time.Second)) {
		t.Errorf("ts: got %v, want submission time", ev.TS)
	}
}

func TestIngest_MistypedDurationDropped(t *testing.T) {
	f := newFixture(t)

	rr := post(t, f.h, "/api/v1/events", `{"agentId":"a","status":"completion","durationMs":"5000","runId":"r1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var ev types.Event
	decode(t, rr, &ev)
	if ev.DurationMs != nil {
		t.Errorf("durationMs: got %v, want dropped", *ev.DurationMs)
	}
	if ev.RunID != "r1" {
		t.Errorf("runId: got %q, want r1", ev.RunID)
	}
	if f.rec.get(api.IngestAccepted) != 1 {
		t.Errorf("accepted count: got %d, want 1", f.rec.get(api.IngestAccepted))
	}
}

func TestIngest_RejectsOversizedBody(t *testing.T) {
	f := newFixture(t)
	big := `{"agentId":"a","status":"heartbeat","message":"` + strings.Repeat("x", 70<<10) + `"}`
	rr := post(t, f.h, "/api/v1/events", big)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestIngest_WriteFailure(t *testing.T) {
	st := store.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data/events.json", 0)
	rec := &countingRecorder{}
	h := api.New(st, monitor.New(st, monitor.DefaultWindows()), rec, 0)

	rr := post(t, h, "/api/v1/events", `{"agentId":"a","status":"heartbeat"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if rec.get(api.IngestFailed) != 1 {
		t.Errorf("failed count: got %d, want 1", rec.get(api.IngestFailed))
	}
}

func TestIngest_NilRecorder(t *testing.T) {
	st := store.New(afero.NewMemMapFs(), "/data/events.json", 0)
	h := api.New(st, monitor.New(st, monitor.DefaultWindows()), nil, 0)
	rr := post(t, h, "/api/v1/events", `{"agentId":"a","status":"completion"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rr.Code)
	}
}

// --- GET /api/v1/events -----------------------------------------------------

func TestListEvents_FiltersAndLimits(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Input{AgentID: "a", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(4 * time.Minute)},
		types.Input{AgentID: "a", RunID: "r2", Status: types.StatusHeartbeat, TS: ago(3 * time.Minute)},
		types.Input{AgentID: "b", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(2 * time.Minute)},
		types.Input{AgentID: "a", RunID: "r1", Status: types.StatusCompletion, TS: ago(1 * time.Minute)},
	)

	var all []types.Event
	decode(t, get(t, f.h, "/api/v1/events"), &all)
	if len(all) != 4 {
		t.Fatalf("events: got %d, want 4", len(all))
	}
	if all[0].Status != types.StatusCompletion {
		t.Errorf("events[0].status: got %q, want newest (completion)", all[0].Status)
	}

	var byRun []types.Event
	decode(t, get(t, f.h, "/api/v1/events?agentId=a&runId=r1"), &byRun)
	if len(byRun) != 2 {
		t.Errorf("agentId=a&runId=r1: got %d, want 2", len(byRun))
	}

	var limited []types.Event
	decode(t, get(t, f.h, "/api/v1/events?limit=1"), &limited)
	if len(limited) != 1 {
		t.Errorf("limit=1: got %d, want 1", len(limited))
	}
}

func TestListEvents_BadLimit(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"limit=0", "limit=-3", "limit=abc"} {
		rr := get(t, f.h, "/api/v1/events?"+q)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestEvents_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/events", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- GET /api/v1/health -----------------------------------------------------

func TestHealth_EmptyLog(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.h, "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status: got %v, want ok", resp["status"])
	}
	rate := resp["successRate24h"].(map[string]interface{})
	if v, ok := rate["rate"]; !ok || v != nil {
		t.Errorf("successRate24h.rate: got %v (present=%v), want null", v, ok)
	}
	if resp["generatedAt"] == nil {
		t.Error("generatedAt: missing")
	}
	windows := resp["windows"].(map[string]interface{})
	if windows["stuckMs"].(float64) != 900000 {
		t.Errorf("windows.stuckMs: got %v, want 900000", windows["stuckMs"])
	}
}

func TestHealth_StuckAndFailing(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Input{AgentID: "live", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(time.Minute)},
		types.Input{AgentID: "wedged", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(40 * time.Minute)},
		types.Input{AgentID: "crashy", RunID: "r1", Status: types.StatusError, TS: ago(2 * time.Hour), Message: "OOM"},
	)

	var snap types.Snapshot
	decode(t, get(t, f.h, "/api/v1/health"), &snap)

	if snap.Status != types.OverallDegraded {
		t.Errorf("status: got %q, want degraded", snap.Status)
	}
	if len(snap.ActiveSessions) != 1 || snap.ActiveSessions[0].AgentID != "live" {
		t.Errorf("activeSessions: got %+v", snap.ActiveSessions)
	}
	if len(snap.StalledOrStuckSessions) != 1 || snap.StalledOrStuckSessions[0].Severity != types.SeverityRed {
		t.Errorf("stalledOrStuckSessions: got %+v", snap.StalledOrStuckSessions)
	}
	if snap.Totals.PotentiallyStuckSessions != 1 {
		t.Errorf("totals.potentiallyStuckSessions: got %d, want 1", snap.Totals.PotentiallyStuckSessions)
	}
	if len(snap.RecentFailures) != 1 || snap.RecentFailures[0].Message != "OOM" {
		t.Errorf("recentFailures: got %+v", snap.RecentFailures)
	}
	if snap.SuccessRate24h.Rate == nil || *snap.SuccessRate24h.Rate != 0 {
		t.Errorf("successRate24h.rate: got %v, want 0", snap.SuccessRate24h.Rate)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.h, "/api/v1/health", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- GET /api/v1/sessions ---------------------------------------------------

func TestSessions(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		types.Input{AgentID: "a", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(5 * time.Minute)},
		types.Input{AgentID: "a", RunID: "r1", Status: types.StatusHeartbeat, TS: ago(4 * time.Minute)},
		types.Input{AgentID: "a", RunID: "r2", Status: types.StatusHeartbeat, TS: ago(time.Minute)},
	)

	rr := get(t, f.h, "/api/v1/sessions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var sessions []types.Session
	decode(t, rr, &sessions)
	if len(sessions) != 2 {
		t.Fatalf("sessions: got %d, want 2", len(sessions))
	}
	if sessions[0].Key != "a:r2" {
		t.Errorf("sessions[0].key: got %q, want a:r2 (most recent first)", sessions[0].Key)
	}
	if sessions[1].EventCount != 2 {
		t.Errorf("sessions[1].eventCount: got %d, want 2", sessions[1].EventCount)
	}
}

func TestSessions_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.h, "/api/v1/sessions", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}
