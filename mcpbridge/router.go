package mcpbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// Client is the subset of mcpclient.Client a Router needs. Declared
// locally (rather than importing mcpclient) so mcpbridge stays a leaf
// package a Router's caller can wire against any MCP transport.
type Client interface {
	DiscoverTools(ctx context.Context) ([]ptcall.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Close() error
}

// Router multiplexes several MCP server connections behind a single
// Dispatcher, lazily discovering which server provides which tool name.
//
// Grounded on antwort-dev-antwort's MCPExecutor.ensureDiscovered: a
// double-checked-locking lazy-discovery pass populates a tool-name ->
// server-name map on first use, then routes calls without re-discovering.
type Router struct {
	mu sync.RWMutex

	clients      map[string]Client
	toolToServer map[string]string
	discovered   bool
	logger       ptcall.Logger
}

// NewRouter constructs a Router over the given server-name -> client map.
func NewRouter(clients map[string]Client, logger ptcall.Logger) *Router {
	return &Router{
		clients:      clients,
		toolToServer: make(map[string]string),
		logger:       logger,
	}
}

// CallTool implements Dispatcher, routing name to whichever server
// advertised it during discovery.
func (r *Router) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	r.ensureDiscovered(ctx)

	r.mu.RLock()
	serverName, ok := r.toolToServer[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no MCP server provides tool %q", ptcall.ErrUnknownTool, name)
	}

	r.mu.RLock()
	client := r.clients[serverName]
	r.mu.RUnlock()

	return client.CallTool(ctx, name, args)
}

// ensureDiscovered triggers tool discovery across all servers exactly
// once, using double-checked locking so concurrent early callers don't
// each pay the discovery cost.
func (r *Router) ensureDiscovered(ctx context.Context) {
	r.mu.RLock()
	if r.discovered {
		r.mu.RUnlock()
		return
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.discovered {
		return
	}

	for serverName, client := range r.clients {
		tools, err := client.DiscoverTools(ctx)
		if err != nil {
			if r.logger != nil {
				r.logger.Logf("mcpbridge: discovery failed for server %q: %v", serverName, err)
			}
			continue
		}
		for _, tool := range tools {
			if _, exists := r.toolToServer[tool.Name]; exists {
				if r.logger != nil {
					r.logger.Logf("mcpbridge: duplicate MCP tool %q, keeping first provider", tool.Name)
				}
				continue
			}
			r.toolToServer[tool.Name] = serverName
		}
	}
	r.discovered = true
}

// Close closes every underlying client connection, returning the last
// error encountered (if any) after attempting all of them.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lastErr error
	for name, client := range r.clients {
		if err := client.Close(); err != nil {
			if r.logger != nil {
				r.logger.Logf("mcpbridge: closing client %q: %v", name, err)
			}
			lastErr = err
		}
	}
	return lastErr
}
