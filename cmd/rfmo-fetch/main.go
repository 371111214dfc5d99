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

// Command rfmo-fetch runs one ingestion pass over a fixed set of RFMO
// adapters and writes the run result plus a flat manifest of stored
// artifact paths to a JSON file.
//
// Usage:
//
//	rfmo-fetch --db-path ./data/ocean-watch.db --storage-root ./data/artifacts --adapters iccat,wcpfc,iotc
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ZahabTZ/ocean-watch/internal/metrics"
	"github.com/ZahabTZ/ocean-watch/internal/ocwlog"
	"github.com/ZahabTZ/ocean-watch/internal/parse"
	"github.com/ZahabTZ/ocean-watch/pkg/adapter"
	"github.com/ZahabTZ/ocean-watch/pkg/engine"
	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/store/artifact"
	"github.com/ZahabTZ/ocean-watch/pkg/store/metadata"
)

// CLI defines the command-line interface.
type CLI struct {
	DBPath      string `name:"db-path" help:"Path to the SQLite metadata database." default:"./data/ocean-watch.db"`
	StorageRoot string `name:"storage-root" help:"Root directory for versioned artifacts." default:"./data/artifacts"`
	Output      string `name:"output" help:"Path to write the run result JSON to." default:"./raw_file_paths.json"`
	Adapters    string `name:"adapters" help:"Comma-separated adapter names." default:"iccat,wcpfc,iotc"`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose, or json)." default:"simple"`
}

// runResultPayload is the fetch CLI's output file shape: the run result
// plus a flat manifest of every stored path.
type runResultPayload struct {
	Run      any      `json:"run"`
	RawPaths []string `json:"raw_paths"`
}

func main() {
	cli := CLI{}
	_ = kong.Parse(&cli,
		kong.Name("rfmo-fetch"),
		kong.Description("Run RFMO scrape/ingestion and write raw file paths."),
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
		logger.Error("rfmo-fetch failed", "error", err)
		os.Exit(1)
	}
}

func run(cli CLI, logger *slog.Logger) error {
	adapterNames := splitAdapterNames(cli.Adapters)

	metaStore, err := metadata.Open(cli.DBPath)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer metaStore.Close()

	artifactStore := artifact.NewStore(cli.StorageRoot)
	registry := adapter.NewRegistry(fetch.DefaultConfig())
	metricsRegistry := metrics.NewRegistry()

	eng := engine.New(registry, parse.NewService(), artifactStore, metaStore, metricsRegistry)

	result, err := eng.RunOnce(context.Background(), adapterNames)
	if err != nil {
		return fmt.Errorf("run ingestion: %w", err)
	}

	rawPaths, err := metaStore.AllStoredPaths(context.Background())
	if err != nil {
		return fmt.Errorf("list stored paths: %w", err)
	}

	payload := runResultPayload{Run: result, RawPaths: rawPaths}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	if err := os.WriteFile(cli.Output, data, 0o644); err != nil {
		return fmt.Errorf("write output file %s: %w", cli.Output, err)
	}

	fmt.Printf("saved=%s\n", cli.Output)
	fmt.Printf("ingested=%d\n", result.Metrics.DocumentsIngested)
	fmt.Printf("skipped=%d\n", result.Metrics.DocumentsSkipped)
	fmt.Printf("failures=%d\n", result.Metrics.Failures)
	return nil
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
