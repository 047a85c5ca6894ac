package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// ErrBackendExists is returned when registering a duplicate backend.
var ErrBackendExists = errors.New("backend already registered")

// Registry manages the local and MCP-bridged backends a toolcaller.Caller
// draws its tool set from — a caller never talks to a Backend directly,
// only to the Registry (and, for cross-backend listing/execution, the
// Aggregator built on top of it).
type Registry struct {
	mu        sync.RWMutex
	backends  map[string]Backend
	factories map[string]Factory
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:  make(map[string]Backend),
		factories: make(map[string]Factory),
	}
}

// RegisterFactory registers a factory for a backend kind.
func (r *Registry) RegisterFactory(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == "" || factory == nil {
		return
	}
	r.factories[kind] = factory
}

// Register adds a backend to the registry.
func (r *Registry) Register(b Backend) error {
	if b == nil {
		return fmt.Errorf("backend is nil")
	}
	name := b.Name()
	if name == "" {
		return fmt.Errorf("backend name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("%w: %s", ErrBackendExists, name)
	}
	r.backends[name] = b
	return nil
}

// Unregister removes a backend from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, exists := r.backends[name]; exists {
		_ = b.Stop()
		delete(r.backends, name)
	}
}

// Get retrieves a backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// List returns all backends.
func (r *Registry) List() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	return out
}

// ListEnabled returns enabled backends only.
func (r *Registry) ListEnabled() []Backend {
	all := r.List()
	out := make([]Backend, 0, len(all))
	for _, b := range all {
		if b.Enabled() {
			out = append(out, b)
		}
	}
	return out
}

// ListByKind returns backends matching the given kind.
func (r *Registry) ListByKind(kind string) []Backend {
	all := r.List()
	out := make([]Backend, 0, len(all))
	for _, b := range all {
		if b.Kind() == kind {
			out = append(out, b)
		}
	}
	return out
}

// Names returns backend names sorted for deterministic output.
func (r *Registry) Names() []string {
	all := r.List()
	out := make([]string, 0, len(all))
	for _, b := range all {
		out = append(out, b.Name())
	}
	sort.Strings(out)
	return out
}

// StartAll starts all backends.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, b := range r.ListEnabled() {
		if err := b.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops all backends.
func (r *Registry) StopAll() error {
	for _, b := range r.List() {
		if err := b.Stop(); err != nil {
			return err
		}
	}
	return nil
}

// ListTools flattens every enabled backend's tools into the plain
// []ptcall.Tool shape toolcaller.Config.Tools and sandbox.Config.LocalTools
// expect, dropping the owning backend's name in the process. Aggregator's
// ListAllTools keeps that name (as AggregatedTool.Namespace) for callers
// that need to route a call back through a specific backend; this method is
// for the more common case of assembling a Caller's tool set directly from
// a Registry with no addressing step in between.
func (r *Registry) ListTools(ctx context.Context) ([]ptcall.Tool, error) {
	var tools []ptcall.Tool
	for _, b := range r.ListEnabled() {
		ts, err := b.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", b.Name(), err)
		}
		tools = append(tools, ts...)
	}
	return tools, nil
}
