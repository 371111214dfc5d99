package adapter

import (
	"sort"

	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
)

// Registry holds one Adapter per RFMO source, each with its own Fetch
// Service instance (and therefore its own rate-limit clock and robots
// cache).
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry constructs the standard ICCAT/WCPFC/IOTC registry, giving each
// adapter its own fetch.Service built from cfg.
func NewRegistry(cfg fetch.Config) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range []Adapter{
		NewICCATAdapter(fetch.NewService(cfg)),
		NewWCPFCAdapter(fetch.NewService(cfg)),
		NewIOTCAdapter(fetch.NewService(cfg)),
	} {
		r.adapters[a.Name()] = a
	}
	return r
}

// Names returns every registered adapter name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered adapter, in name order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, name := range r.Names() {
		out = append(out, r.adapters[name])
	}
	return out
}

// Get looks up one adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, &ingesterr.ConfigError{Reason: "unknown adapter: " + name}
	}
	return a, nil
}
