// Package local implements backend.Backend for tools executed directly in
// the host process, the same ptcall.Tool shape sandbox.Config.LocalTools
// consumes.
package local

import (
	"context"
	"sync"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/backend"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// Backend implements backend.Backend for in-process ptcall.Tool handlers.
type Backend struct {
	name     string
	enabled  bool
	handlers map[string]ptcall.Tool
	mu       sync.RWMutex
}

// New creates a new local backend.
func New(name string) *Backend {
	return &Backend{
		name:     name,
		enabled:  true,
		handlers: make(map[string]ptcall.Tool),
	}
}

// Kind returns the backend kind.
func (b *Backend) Kind() string {
	return "local"
}

// Name returns the backend instance name.
func (b *Backend) Name() string {
	return b.name
}

// Enabled returns whether the backend is enabled.
func (b *Backend) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled enables or disables the backend.
func (b *Backend) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// RegisterHandler registers a tool under name.
func (b *Backend) RegisterHandler(name string, tool ptcall.Tool) {
	if tool.Name == "" {
		tool.Name = name
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = tool
}

// UnregisterHandler removes a tool.
func (b *Backend) UnregisterHandler(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, name)
}

// ListTools returns tools available from this backend.
func (b *Backend) ListTools(_ context.Context) ([]ptcall.Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ptcall.Tool, 0, len(b.handlers))
	for _, tool := range b.handlers {
		out = append(out, tool)
	}
	return out, nil
}

// Execute invokes a tool handler.
func (b *Backend) Execute(ctx context.Context, tool string, args map[string]any) (any, error) {
	b.mu.RLock()
	enabled := b.enabled
	def, ok := b.handlers[tool]
	b.mu.RUnlock()

	if !enabled {
		return nil, backend.ErrBackendDisabled
	}
	if !ok || def.Execute == nil {
		return nil, backend.ErrToolNotFound
	}
	return def.Execute(ctx, args)
}

// Start initializes the backend (no-op for local backend).
func (b *Backend) Start(_ context.Context) error {
	return nil
}

// Stop stops the backend (no-op for local backend).
func (b *Backend) Stop() error {
	return nil
}
