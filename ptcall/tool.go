package ptcall

import (
	"context"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// Tool is a single callable exposed to generated programs. Names beginning
// with the prefix "mcp_" denote external MCP tools; all others are local
// and run in the host process. A tool's lifetime is the hosting process.
type Tool struct {
	// Name is the stable identifier used both in the sandbox script and in
	// tool-call records.
	Name string

	// Description is the human-readable summary surfaced to the LLM via
	// generated tool documentation.
	Description string

	// InputSchema declares the tool's expected arguments. May be nil for
	// tools with no useful declared shape, in which case the Parameter
	// Normalizer falls back to its name-heuristic wrapping only.
	InputSchema *schema.Schema

	// Execute invokes the tool. value must be JSON-serializable or
	// gracefully serializable per the degradation rules in toolcaller.
	Execute func(ctx context.Context, args map[string]any) (any, error)
}

// ToolCallRecord is an immutable record of one physical tool invocation,
// appended once when a request is observed.
type ToolCallRecord struct {
	ToolName         string
	Args             map[string]any
	NormalizedArgs   map[string]any
	RawResult        any
	TransformedResult any
	Error            string
	IsMCP            bool
	ElapsedMs        int64
}
