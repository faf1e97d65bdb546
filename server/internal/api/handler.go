package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/agentpulse/agentpulse/server/internal/monitor"
	"github.com/agentpulse/agentpulse/server/internal/store"
)

const (
	// maxBodyBytes caps the size of one ingestion request.
	maxBodyBytes = 64 << 10

	defaultEventLimit = 100
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store    Appender
	monitor  *monitor.Monitor
	recorder IngestRecorder
	maxLimit int
	mux      *http.ServeMux
}

// New creates a Handler that writes events to st, answers queries from mon and
// reports ingestion outcomes to rec. rec may be nil.
func New(st Appender, mon *monitor.Monitor, rec IngestRecorder, maxEvents int) http.Handler {
	if maxEvents <= 0 {
		maxEvents = store.DefaultMaxEvents
	}
	h := &Handler{
		store:    st,
		monitor:  mon,
		recorder: rec,
		maxLimit: maxEvents,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/events", h.events)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sessions", h.sessions)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// events dispatches /api/v1/events by method.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingest(w, r)
	case http.MethodGet:
		h.listEvents(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// ingest handles POST /api/v1/events.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.observe(IngestRejected)
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	in, err := store.ParseInput(body)
	if err != nil {
		h.observe(IngestRejected)
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.store.Append(in)
	switch {
	case errors.Is(err, store.ErrInvalidEvent):
		h.observe(IngestRejected)
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.observe(IngestFailed)
		slog.Error("api: event write failed",
			"agent_id", in.AgentID,
			"run_id", in.RunID,
			"err", err,
		)
		jsonErr(w, http.StatusInternalServerError, "failed to persist event")
		return
	}

	h.observe(IngestAccepted)
	jsonResp(w, http.StatusCreated, ev)
}

// listEvents handles GET /api/v1/events.
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultEventLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	jsonResp(w, http.StatusOK, h.monitor.Events(q.Get("agentId"), q.Get("runId"), limit))
}

// health serves GET /api/v1/health with a freshly computed snapshot.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.monitor.Snapshot())
}

// sessions serves GET /api/v1/sessions.
func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.monitor.Sessions())
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) observe(result string) {
	if h.recorder != nil {
		h.recorder.ObserveIngest(result)
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
