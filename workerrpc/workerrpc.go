// Package workerrpc defines the file-mediated request/response protocol that
// routes tool calls from a generated sandbox program back to handlers on the
// host, and the well-known path layout the worker and host both operate on.
//
// The protocol is bit-exact with the file table in spec section 6: request
// and response envelopes are single JSON documents at a path derived from
// the call kind and a unique identifier, written atomically and consumed
// once (read-then-delete) by whichever side is waiting on them. Because
// every identifier is unique per call, no locking is required on either
// side of the boundary.
package workerrpc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind discriminates a tool call's routing: local tools run in the host
// process, mcp tools are dispatched through the MCP bridge.
type Kind string

const (
	// Local denotes a call to a tool registered directly in the host process.
	Local Kind = "local"

	// MCP denotes a call to an external Model-Context-Protocol tool.
	MCP Kind = "mcp"
)

// Request is the RPC request envelope a worker writes before blocking on a
// tool call: {toolName, args, callId, type}.
type Request struct {
	ToolName string `json:"toolName"`
	Args     any    `json:"args"`
	CallID   string `json:"callId"`
	Kind     Kind   `json:"type"`
}

// Response is the RPC response envelope the host writes back: either
// {data: value} on success or {error: string} on failure. Never both.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Error != ""
}

// PartialResult accompanies a failed Output when some tool calls completed
// before the exception that aborted the program.
type PartialResult struct {
	Error            string `json:"error"`
	CompletedResults []any  `json:"completedResults,omitempty"`
}

// Output is the execution-output document a worker writes exactly once per
// run, at the well-known sandbox_output.json path.
type Output struct {
	Success       bool           `json:"success"`
	Result        any            `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	Stack         string         `json:"stack,omitempty"`
	PartialResult *PartialResult `json:"partialResult,omitempty"`
}

// File name prefixes, matching the bit-exact table in spec section 6.
const (
	toolCallPrefix   = "tool_call_"
	toolResultPrefix = "tool_result_"
	mcpCallPrefix    = "mcp_call_"
	mcpResultPrefix  = "mcp_result_"
	scriptFile       = "execute.js"
	outputFile       = "sandbox_output.json"
	jsonExt          = ".json"
)

// ScriptPath is the path at which the host writes the generated program.
func ScriptPath(scratchDir string) string {
	return filepath.Join(scratchDir, scriptFile)
}

// OutputPath is the path at which the worker writes its execution output.
func OutputPath(scratchDir string) string {
	return filepath.Join(scratchDir, outputFile)
}

// RequestPath returns the request-file path for the given kind and call id.
func RequestPath(scratchDir string, kind Kind, id string) string {
	return filepath.Join(scratchDir, requestName(kind, id))
}

// ResponsePath returns the response-file path for the given kind and call id.
func ResponsePath(scratchDir string, kind Kind, id string) string {
	return filepath.Join(scratchDir, responseName(kind, id))
}

func requestName(kind Kind, id string) string {
	return prefixFor(kind, true) + id + jsonExt
}

func responseName(kind Kind, id string) string {
	return prefixFor(kind, false) + id + jsonExt
}

func prefixFor(kind Kind, isRequest bool) string {
	switch kind {
	case MCP:
		if isRequest {
			return mcpCallPrefix
		}
		return mcpResultPrefix
	default:
		if isRequest {
			return toolCallPrefix
		}
		return toolResultPrefix
	}
}

// ParseRequestName reports the Kind and call id encoded in a request file's
// base name, or ok=false if name does not match either request prefix.
func ParseRequestName(name string) (kind Kind, id string, ok bool) {
	switch {
	case strings.HasPrefix(name, mcpCallPrefix) && strings.HasSuffix(name, jsonExt):
		return MCP, strings.TrimSuffix(strings.TrimPrefix(name, mcpCallPrefix), jsonExt), true
	case strings.HasPrefix(name, toolCallPrefix) && strings.HasSuffix(name, jsonExt):
		return Local, strings.TrimSuffix(strings.TrimPrefix(name, toolCallPrefix), jsonExt), true
	default:
		return "", "", false
	}
}

// WriteFileAtomic writes data to path via a temp-file-plus-rename sequence,
// so a concurrent reader on the other side of the RPC boundary never
// observes a partially written document. Both the sandbox.LocalWorker (the
// worker-side filesystem) and WriteAtomic (this package's JSON convenience
// wrapper) share this sequence, since the file protocol's atomicity
// guarantee has to hold for every write to the scratch directory, not just
// the RPC envelopes.
func WriteFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("workerrpc: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("workerrpc: rename %s: %w", path, err)
	}
	return nil
}

// WriteAtomic marshals v as JSON and writes it to path via WriteFileAtomic.
func WriteAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("workerrpc: marshal %s: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}
