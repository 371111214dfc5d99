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

// Command rfmo-alerts scans a storage root for ingested documents and
// writes structured, actionable alerts to a JSON file.
//
// Usage:
//
//	rfmo-alerts --storage-root ./data/artifacts --days 7
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ZahabTZ/ocean-watch/internal/ocwlog"
	"github.com/ZahabTZ/ocean-watch/pkg/alerts"
)

// CLI defines the command-line interface.
type CLI struct {
	StorageRoot string `name:"storage-root" help:"Root directory to scan for metadata.json sidecars." default:"./data/artifacts"`
	Output      string `name:"output" help:"Path to write the alerts JSON to." default:"./alerts.json"`
	Days        int    `name:"days" help:"Only include documents published in the last N days. 0 means no filter." default:"7"`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose, or json)." default:"simple"`
}

type alertsPayload struct {
	Alerts []alerts.Alert `json:"alerts"`
}

func main() {
	cli := CLI{}
	_ = kong.Parse(&cli,
		kong.Name("rfmo-alerts"),
		kong.Description("Generate structured actionable alerts from scraped RFMO artifacts."),
		kong.UsageOnError(),
	)

	level, err := ocwlog.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ocwlog.Init(level, os.Stderr, cli.LogFormat)
	logger := ocwlog.Get()

	if err := run(cli); err != nil {
		logger.Error("rfmo-alerts failed", "error", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	generator := alerts.NewGenerator(cli.StorageRoot)
	generated, err := generator.Generate(cli.Days)
	if err != nil {
		return fmt.Errorf("generate alerts: %w", err)
	}
	if generated == nil {
		generated = []alerts.Alert{}
	}

	data, err := json.MarshalIndent(alertsPayload{Alerts: generated}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	if err := os.WriteFile(cli.Output, data, 0o644); err != nil {
		return fmt.Errorf("write output file %s: %w", cli.Output, err)
	}

	fmt.Printf("saved=%s\n", cli.Output)
	fmt.Printf("alerts=%d\n", len(generated))
	return nil
}
