package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/agentpulse/agentpulse/pkg/types"
)

// DefaultMaxEvents is the log capacity used when none is configured.
const DefaultMaxEvents = 1000

// ErrInvalidEvent is wrapped by every ingestion validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Store is a bounded, file-backed log of health events.
//
// Append serialises writers within one process. Writers in other processes
// race on read-modify-write and the last rename wins.
type Store struct {
	fs        afero.Fs
	path      string
	maxEvents int

	mu    sync.Mutex
	now   func() time.Time // injectable for deterministic tests
	newID func() string
}

// New creates a Store writing to path on fs. maxEvents <= 0 selects
// DefaultMaxEvents.
func New(fs afero.Fs, path string, maxEvents int) *Store {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Store{
		fs:        fs,
		path:      path,
		maxEvents: maxEvents,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Path returns the log file location.
func (s *Store) Path() string { return s.path }

// MaxEvents returns the log capacity.
func (s *Store) MaxEvents() int { return s.maxEvents }

// Append validates in, stores it as a new event and returns the stored event.
// Validation failures wrap ErrInvalidEvent and leave the log untouched.
func (s *Store) Append(in types.Input) (types.Event, error) {
	ev, err := s.normalize(in)
	if err != nil {
		return types.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(s.Read(), ev)
	sortByTS(events)
	if len(events) > s.maxEvents {
		events = events[len(events)-s.maxEvents:]
	}

	if err := s.writeAtomic(events); err != nil {
		return types.Event{}, fmt.Errorf("store: append: %w", err)
	}

	slog.Debug("store: event appended",
		"id", ev.ID,
		"agent_id", ev.AgentID,
		"run_id", ev.RunID,
		"status", ev.Status,
		"log_size", len(events),
	)
	return ev, nil
}

// Read returns every valid event in the log sorted ascending by timestamp.
// A missing or corrupt file yields an empty slice; malformed records are
// skipped individually.
func (s *Store) Read() []types.Event {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, afero.ErrFileNotFound) {
			slog.Warn("store: read failed, treating log as empty", "path", s.path, "err", err)
		}
		return []types.Event{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("store: log is not a JSON array, treating as empty", "path", s.path, "err", err)
		return []types.Event{}
	}

	events := make([]types.Event, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		ev, ok := decodeRecord(r)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		slog.Debug("store: skipped malformed records", "path", s.path, "count", skipped)
	}

	sortByTS(events)
	return events
}

// Check reports whether the directory holding the log is reachable.
func (s *Store) Check(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := s.fs.Stat(dir)
	if err != nil {
		return fmt.Errorf("store: stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store: %q is not a directory", dir)
	}
	return nil
}

// normalize turns an ingestion payload into a storable event.
func (s *Store) normalize(in types.Input) (types.Event, error) {
	if in.AgentID == "" {
		return types.Event{}, fmt.Errorf("%w: agentId is required", ErrInvalidEvent)
	}
	if !in.Status.Valid() {
		return types.Event{}, fmt.Errorf("%w: status %q must be one of heartbeat|error|completion",
			ErrInvalidEvent, in.Status)
	}

	ts, ok := types.ParseTime(in.TS)
	if !ok {
		ts = s.now().UTC()
	}

	return types.Event{
		ID:         s.newID(),
		TS:         ts,
		AgentID:    in.AgentID,
		AgentType:  in.AgentType,
		RunID:      in.RunID,
		Status:     in.Status,
		Message:    in.Message,
		Progress:   nullToEmpty(in.Progress),
		Meta:       nullToEmpty(in.Meta),
		DurationMs: in.DurationMs,
		StartedAt:  in.StartedAt,
	}, nil
}

// writeAtomic replaces the log with events: write a temp file in the same
// directory, fsync it, then rename it over the log.
func (s *Store) writeAtomic(events []types.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return nil
}

// sortByTS orders events ascending by timestamp, keeping file order for ties.
func sortByTS(events []types.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TS.Before(events[j].TS)
	})
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
