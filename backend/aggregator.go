package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// ErrInvalidToolID is returned for malformed tool IDs.
var ErrInvalidToolID = errors.New("invalid tool ID format")

// AggregatedTool is one tool surfaced by the Aggregator, tagged with the
// backend it came from. ptcall.Tool itself carries no namespace, since a
// bare Tool has no notion of which backend it belongs to until it's been
// pulled out of a Registry.
type AggregatedTool struct {
	Tool      ptcall.Tool
	Namespace string
}

// Aggregator combines tools from multiple backends.
type Aggregator struct {
	registry *Registry
}

// NewAggregator creates a new tool aggregator.
func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// ListAllTools returns tools from all enabled backends, each tagged with
// its owning backend's name.
func (a *Aggregator) ListAllTools(ctx context.Context) ([]AggregatedTool, error) {
	backends := a.registry.ListEnabled()
	all := make([]AggregatedTool, 0)

	for _, b := range backends {
		tools, err := b.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		for _, tool := range tools {
			all = append(all, AggregatedTool{Tool: tool, Namespace: b.Name()})
		}
	}

	return all, nil
}

// Execute invokes a tool through the backend registry.
func (a *Aggregator) Execute(ctx context.Context, toolID string, args map[string]any) (any, error) {
	backendName, tool, err := ParseToolID(toolID)
	if err != nil {
		return nil, err
	}
	if backendName == "" {
		return nil, ErrInvalidToolID
	}

	b, ok := a.registry.Get(backendName)
	if !ok {
		return nil, ErrBackendNotFound
	}
	if !b.Enabled() {
		return nil, ErrBackendDisabled
	}
	return b.Execute(ctx, tool, args)
}

// ParseToolID splits a tool ID of the form "backend:tool" into its parts.
// An ID with no colon is treated as a bare tool name with no backend. An
// ID with more than one colon, or an empty ID, is rejected.
func ParseToolID(id string) (backendName, tool string, err error) {
	if id == "" {
		return "", "", ErrInvalidToolID
	}
	parts := strings.Split(id, ":")
	switch len(parts) {
	case 1:
		return "", parts[0], nil
	case 2:
		return parts[0], parts[1], nil
	default:
		return "", "", ErrInvalidToolID
	}
}

// FormatToolID builds a tool ID from backend and tool name.
func FormatToolID(backendName, tool string) string {
	if backendName == "" {
		return tool
	}
	return fmt.Sprintf("%s:%s", backendName, tool)
}
