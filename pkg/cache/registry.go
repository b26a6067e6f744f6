package cache

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps configuration names to backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns a registry with the memory and noop backends pre-registered.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.backends[BackendMemory] = NewMemory()
	r.backends[BackendNoop] = NewNoop()
	return r
}

// Register adds or replaces the backend stored under name.
func (r *Registry) Register(name string, b Backend) {
	if name == "" || b == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, name, r.namesLocked())
	}
	return b, nil
}

// Names lists registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
