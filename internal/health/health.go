// Package health runs named dependency probes for readiness reporting.
package health

import (
	"context"
	"sync"
)

// CheckFunc probes one dependency. A nil return means the dependency is
// usable; a non-nil error carries the reason it is not.
type CheckFunc func(ctx context.Context) error

// Status is the outcome of a single probe.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Registry holds probes keyed by name and runs them on demand.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	checks map[string]CheckFunc
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]CheckFunc)}
}

// Register adds a probe. Re-registering a name replaces the previous probe
// but keeps its position in the report.
func (r *Registry) Register(name string, fn CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[name]; !exists {
		r.order = append(r.order, name)
	}
	r.checks[name] = fn
}

// CheckAll runs every probe in registration order. The bool is true only
// when all probes pass.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	checks := make(map[string]CheckFunc, len(r.checks))
	for name, fn := range r.checks {
		checks[name] = fn
	}
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(order))
	for _, name := range order {
		st := Status{Name: name, Healthy: true}
		if err := checks[name](ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
			healthy = false
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}
