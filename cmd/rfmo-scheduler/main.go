// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command rfmo-scheduler runs the ingestion engine on a fixed interval in
// the background and serves its metrics and status over HTTP, for
// deployments that want a long-lived process instead of a cron-invoked CLI.
//
// Usage:
//
//	rfmo-scheduler --interval-seconds 3600 --metrics-addr :9090
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ZahabTZ/ocean-watch/internal/metrics"
	"github.com/ZahabTZ/ocean-watch/internal/ocwlog"
	"github.com/ZahabTZ/ocean-watch/internal/parse"
	"github.com/ZahabTZ/ocean-watch/internal/scheduler"
	"github.com/ZahabTZ/ocean-watch/pkg/adapter"
	"github.com/ZahabTZ/ocean-watch/pkg/engine"
	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
	"github.com/ZahabTZ/ocean-watch/pkg/store/artifact"
	"github.com/ZahabTZ/ocean-watch/pkg/store/metadata"
)

// CLI defines the command-line interface.
type CLI struct {
	DBPath      string `name:"db-path" help:"Path to the SQLite metadata database." default:"./data/ocean-watch.db"`
	StorageRoot string `name:"storage-root" help:"Root directory for versioned artifacts." default:"./data/artifacts"`
	Adapters    string `name:"adapters" help:"Comma-separated adapter names. Empty means all registered adapters."`

	IntervalSeconds int    `name:"interval-seconds" help:"Seconds between ingestion runs." default:"3600"`
	MetricsAddr     string `name:"metrics-addr" help:"Address to serve /metrics and /status on." default:":9090"`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose, or json)." default:"simple"`
}

func main() {
	cli := CLI{}
	_ = kong.Parse(&cli,
		kong.Name("rfmo-scheduler"),
		kong.Description("Run the RFMO ingestion engine on a fixed interval and serve its metrics."),
		kong.UsageOnError(),
	)

	level, err := ocwlog.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ocwlog.Init(level, os.Stderr, cli.LogFormat)
	logger := ocwlog.Get()

	if err := run(cli, logger); err != nil {
		logger.Error("rfmo-scheduler failed", "error", err)
		os.Exit(1)
	}
}

func run(cli CLI, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	metaStore, err := metadata.Open(cli.DBPath)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer metaStore.Close()

	artifactStore := artifact.NewStore(cli.StorageRoot)
	registry := adapter.NewRegistry(fetch.DefaultConfig())
	metricsRegistry := metrics.NewRegistry()
	eng := engine.New(registry, parse.NewService(), artifactStore, metaStore, metricsRegistry)

	adapterNames := splitAdapterNames(cli.Adapters)
	sched := scheduler.New(func(ctx context.Context) (*models.IngestionRunResult, error) {
		return eng.RunOnce(ctx, adapterNames)
	})
	sched.Start(time.Duration(cli.IntervalSeconds) * time.Second)
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsRegistry.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := sched.Status()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})

	server := &http.Server{Addr: cli.MetricsAddr, Handler: mux}
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics and status", "addr", cli.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErrCh:
		if err != nil {
			cancel()
			return fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func splitAdapterNames(csv string) []string {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
