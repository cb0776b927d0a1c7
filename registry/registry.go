// Package registry holds module factories by name.
//
// A bootstrap artifact publishes its factory here instead of into an ambient
// global; the loader looks it up after the artifact has run. The registry
// outlives any single loader, so a factory registered once is reused.
package registry

import (
	"context"
	"sort"
	"sync"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
)

// Factory produces a ready-to-use module instance.
type Factory func(ctx context.Context) (wasmsudoku.Module, error)

// Registry maps factory names to factories. Safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register binds name to f, replacing any earlier binding.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory bound to name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok && f != nil
}

// Unregister removes name and reports whether it was bound.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	delete(r.factories, name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}
