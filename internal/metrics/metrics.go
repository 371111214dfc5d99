// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics implements the Metrics Registry: an in-process counter
// map updated by the Engine and exposed read-only over an HTTP endpoint in
// Prometheus text format v0.0.4.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Names of the nine counters the exposition pins exactly.
const (
	DocumentsDiscovered = "rfmo_documents_discovered_total"
	DocumentsFilteredOut = "rfmo_documents_filtered_out_total"
	DocumentsFetched    = "rfmo_documents_fetched_total"
	DocumentsIngested   = "rfmo_documents_ingested_total"
	DocumentsSkipped    = "rfmo_documents_skipped_total"
	Failures            = "rfmo_failures_total"
	ParseFailures       = "rfmo_parse_failures_total"
	StorageBytes        = "rfmo_storage_bytes_total"
	ProcessingSeconds   = "rfmo_processing_seconds_total"
)

var counterNames = []string{
	DocumentsDiscovered,
	DocumentsFilteredOut,
	DocumentsFetched,
	DocumentsIngested,
	DocumentsSkipped,
	Failures,
	ParseFailures,
	StorageBytes,
	ProcessingSeconds,
}

// Registry is the process-wide counter map. It wraps
// prometheus.CounterVec-free prometheus.Counter instances registered into a
// private prometheus.Registry (for any future promhttp-compatible export),
// while also tracking the same values directly so the exact sorted
// "name value" text format can be produced without depending on promhttp's
// own (HELP/TYPE-commented, declaration-ordered) exposition.
type Registry struct {
	mu       sync.Mutex
	counters map[string]float64
	promReg  *prometheus.Registry
	promVecs map[string]prometheus.Counter
}

// NewRegistry constructs the Registry with all nine counters pre-registered
// at zero, matching the engine's expectation that every name always appears
// in the exposition even before any document has been processed.
func NewRegistry() *Registry {
	r := &Registry{
		counters: make(map[string]float64, len(counterNames)),
		promReg:  prometheus.NewRegistry(),
		promVecs: make(map[string]prometheus.Counter, len(counterNames)),
	}
	for _, name := range counterNames {
		r.counters[name] = 0
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
		r.promReg.MustRegister(c)
		r.promVecs[name] = c
	}
	return r
}

// Add increments a named counter by delta (delta may be fractional for the
// seconds counter). Unknown names are a programmer error and panic, since
// the counter set is closed and fixed.
func (r *Registry) Add(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[name]; !ok {
		panic(fmt.Sprintf("metrics: unknown counter %q", name))
	}
	r.counters[name] += delta
	r.promVecs[name].Add(delta)
}

// Snapshot returns a stable copy of every counter's current value.
func (r *Registry) Snapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

// Handler returns an http.Handler serving GET /metrics in Prometheus text
// format v0.0.4: one "name value" line per counter, sorted by name, with no
// HELP/TYPE comment lines. Any other path 404s.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/metrics" {
			http.NotFound(w, req)
			return
		}

		snapshot := r.Snapshot()
		names := make([]string, 0, len(snapshot))
		for name := range snapshot {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "%s %s\n", name, formatValue(snapshot[name]))
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
