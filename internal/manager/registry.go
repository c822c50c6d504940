// Package manager implements the Tile Manager and Tile Handle (§4.4): the
// per-locality proxy that routes get/set through a direct pointer to a
// co-located Holder, a cache hit, or a remote fetch, plus the lightweight
// serializable handle value callers pass through the dataflow graph.
package manager

import (
	"sync"

	"github.com/pspoerri/gprat/internal/gprerrors"
)

// Registry lets one locality's Manager address another's. It models the
// "process-to-locality assignment" spec.md marks out of scope: within a
// single Go process, every locality's Manager is simply a value in this
// map, and crossing a "locality boundary" means calling through Registry
// instead of holding a direct pointer — the seam at which real transport
// (gRPC, a message queue, ...) would be substituted in a true multi-process
// deployment.
type Registry struct {
	mu       sync.RWMutex
	managers map[int]*Manager
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: make(map[int]*Manager)}
}

// Add registers m under its own locality id.
func (r *Registry) Add(m *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m.locality] = m
}

// Get returns the Manager for a locality, or a Topology error if no
// Manager is registered there.
func (r *Registry) Get(locality int) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[locality]
	if !ok {
		return nil, gprerrors.Wrap(gprerrors.KindTopology, "registry: no manager registered for locality %d", locality)
	}
	return m, nil
}

// Localities returns every registered locality id.
func (r *Registry) Localities() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.managers))
	for l := range r.managers {
		out = append(out, l)
	}
	return out
}
