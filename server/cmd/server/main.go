package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/spf13/afero"

	"github.com/agentpulse/agentpulse/server/internal/api"
	"github.com/agentpulse/agentpulse/server/internal/config"
	"github.com/agentpulse/agentpulse/server/internal/metrics"
	"github.com/agentpulse/agentpulse/server/internal/monitor"
	"github.com/agentpulse/agentpulse/server/internal/store"
	"github.com/agentpulse/agentpulse/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("agentpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"event_log", cfg.Server.EventLog.Path,
		"max_events", cfg.Server.EventLog.MaxEvents,
		"stall_after", cfg.Server.Monitor.StallAfter,
		"stuck_after", cfg.Server.Monitor.StuckAfter,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(filepath.Dir(cfg.Server.EventLog.Path), 0o755); err != nil {
		slog.Error("failed to create event log directory", "path", cfg.Server.EventLog.Path, "err", err)
		os.Exit(1)
	}
	st := store.New(fs, cfg.Server.EventLog.Path, cfg.Server.EventLog.MaxEvents)
	mon := monitor.New(st, cfg.Server.Monitor.Windows())
	met := metrics.New(mon, api.IngestAccepted, api.IngestRejected, api.IngestFailed)

	// Thresholds and log level follow config edits; the port and log path
	// need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) {
			mon.SetWindows(c.Server.Monitor.Windows())
			level.Set(c.Server.SlogLevel())
			slog.Info("config reloaded",
				"stall_after", c.Server.Monitor.StallAfter,
				"stuck_after", c.Server.Monitor.StuckAfter,
				"log_level", c.Server.LogLevel,
			)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		}
	}()

	hub := ws.New(mon, cfg.Server.Stream.Interval)
	go hub.Run(ctx)

	checker := health.NewChecker(
		health.WithTimeout(2*time.Second),
		health.WithCheck(health.Check{
			Name:  "event_log",
			Check: st.Check,
		}),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, mon, met, cfg.Server.EventLog.MaxEvents))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", met.Handler())
	httpMux.Handle("/healthz", health.NewHandler(checker))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("agentpulse-server shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
