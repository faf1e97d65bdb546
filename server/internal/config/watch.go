package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events one save produces (truncate,
// write, chmod) into a single reload.
const reloadDelay = 100 * time.Millisecond

var errEmptyConfig = errors.New("server config: file is empty")

// Watch reloads the config file at path whenever it changes and hands each
// successfully loaded Config to onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself, so saves that
// replace the file (write temp, rename) keep being observed. A reload that
// fails to load or validate, or finds the file empty mid-save, is logged and
// skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watch: resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watch: add %q: %w", filepath.Dir(abs), err)
	}
	slog.Info("config: watching for changes", "path", abs)

	pending := time.NewTimer(reloadDelay)
	pending.Stop()
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			if !pending.Stop() {
				select {
				case <-pending.C:
				default:
				}
			}
			pending.Reset(reloadDelay)

		case <-pending.C:
			cfg, err := reload(abs)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", abs, "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload is Load for a running server: an empty file is an edit in progress,
// not a request to fall back to defaults.
func reload(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyConfig
	}
	return parse(data)
}
