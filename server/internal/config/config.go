package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentpulse/agentpulse/server/internal/monitor"
	"github.com/agentpulse/agentpulse/server/internal/store"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultLogLevel       = "info"
	DefaultEventLogPath   = "data/agent-health-events.json"
	DefaultStreamInterval = 5 * time.Second
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// EventLog configures the on-disk event log.
	EventLog EventLogConfig `yaml:"event_log"`

	// Monitor holds the classification thresholds and aggregation windows.
	Monitor MonitorConfig `yaml:"monitor"`

	// Stream controls the WebSocket snapshot stream.
	Stream StreamConfig `yaml:"stream"`
}

// EventLogConfig configures the event log file.
type EventLogConfig struct {
	// Path is the JSON file holding the log. Its directory is created on first write.
	Path string `yaml:"path"`

	// MaxEvents caps the number of events kept; the oldest are evicted first.
	MaxEvents int `yaml:"max_events"`
}

// MonitorConfig holds the thresholds used when computing snapshots.
type MonitorConfig struct {
	StallAfter       time.Duration `yaml:"stall_after"`
	StuckAfter       time.Duration `yaml:"stuck_after"`
	Window           time.Duration `yaml:"window"`
	DurationLookback time.Duration `yaml:"duration_lookback"`
	RecentFailures   int           `yaml:"recent_failures"`
}

// Windows converts the monitor settings to monitor.Windows.
func (m MonitorConfig) Windows() monitor.Windows {
	return monitor.Windows{
		StallAfter:       m.StallAfter,
		StuckAfter:       m.StuckAfter,
		Window:           m.Window,
		DurationLookback: m.DurationLookback,
		RecentFailures:   m.RecentFailures,
	}
}

// StreamConfig controls the WebSocket snapshot stream.
type StreamConfig struct {
	// Interval is how often a fresh snapshot is pushed to connected clients.
	Interval time.Duration `yaml:"interval"`
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to Info.
func (s ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return parse(data)
}

// parse applies defaults, unmarshals data over them and validates the result.
func parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	w := monitor.DefaultWindows()
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			EventLog: EventLogConfig{
				Path:      DefaultEventLogPath,
				MaxEvents: store.DefaultMaxEvents,
			},
			Monitor: MonitorConfig{
				StallAfter:       w.StallAfter,
				StuckAfter:       w.StuckAfter,
				Window:           w.Window,
				DurationLookback: w.DurationLookback,
				RecentFailures:   w.RecentFailures,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.EventLog.Path == "" {
		return fmt.Errorf("server.event_log.path is required")
	}
	if s.EventLog.MaxEvents <= 0 {
		return fmt.Errorf("server.event_log.max_events must be positive")
	}
	m := s.Monitor
	if m.StallAfter <= 0 || m.StuckAfter <= 0 || m.Window <= 0 || m.DurationLookback <= 0 {
		return fmt.Errorf("server.monitor durations must be positive")
	}
	if m.StuckAfter < m.StallAfter {
		return fmt.Errorf("server.monitor.stuck_after (%v) must not be shorter than stall_after (%v)",
			m.StuckAfter, m.StallAfter)
	}
	if m.RecentFailures < 0 {
		return fmt.Errorf("server.monitor.recent_failures must not be negative")
	}
	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	return nil
}
