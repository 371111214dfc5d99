// Package config implements the ambient configuration layer: a YAML-backed
// Config struct with documented defaults, plus an fsnotify-based watcher
// that signals when the config file changes.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the ingestion pipeline needs at process start.
type Config struct {
	StorageRoot        string  `yaml:"storage_root"`
	MetadataDBPath     string  `yaml:"metadata_db_path"`
	UserAgent          string  `yaml:"user_agent"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	FetchAttempts      int     `yaml:"fetch_attempts"`
	FetchBaseBackoffSeconds float64 `yaml:"fetch_base_backoff_seconds"`
	MinRequestIntervalSeconds float64 `yaml:"min_request_interval_seconds"`
	RespectRobots      bool    `yaml:"respect_robots"`
	AlertLookbackDays  int     `yaml:"alert_lookback_days"`
	MetricsNamespace   string  `yaml:"metrics_namespace"`
	SchedulerIntervalSeconds int `yaml:"scheduler_interval_seconds"`
}

// Default returns the documented production defaults.
func Default() Config {
	return Config{
		StorageRoot:               "./data/artifacts",
		MetadataDBPath:            "./data/ocean-watch.db",
		UserAgent:                 "ocean-watch-rfmo-ingestion/1.0",
		FetchTimeoutSeconds:       30,
		FetchAttempts:             3,
		FetchBaseBackoffSeconds:   1.0,
		MinRequestIntervalSeconds: 0.25,
		RespectRobots:             true,
		AlertLookbackDays:         0,
		MetricsNamespace:          "rfmo",
		SchedulerIntervalSeconds:  3600,
	}
}

// Load reads and parses a YAML config file at path, applying Default()
// values for any field the file leaves unset (by loading over a copy of
// the defaults).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher watches a config file for changes and signals on Changes().
// Uses an fsnotify directory-watch-with-debounce pattern, exposed as a
// direct helper rather than a pull-based provider interface.
type Watcher struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// Watch starts watching path's containing directory for writes/creates to
// that file, returning a channel that fires (debounced 100ms) on change.
func Watch(ctx context.Context, path string) (*Watcher, <-chan struct{}, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	configDir := filepath.Dir(absPath)
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed to watch directory %s: %w", configDir, err)
	}

	w := &Watcher{path: absPath, watcher: watcher}
	ch := make(chan struct{}, 1)
	go w.loop(ctx, filepath.Base(absPath), ch)

	slog.Info("watching config file", "path", absPath)
	return w, ch, nil
}

func (w *Watcher) loop(ctx context.Context, configFile string, ch chan<- struct{}) {
	defer close(ch)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					select {
					case ch <- struct{}{}:
						slog.Debug("config file changed", "path", w.path)
					default:
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config file watcher error", "error", err)
		}
	}
}

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}
