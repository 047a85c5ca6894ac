// Package toolcaller implements the Programmatic Tool Caller: it
// takes a fixed tool set, splits it into local and MCP-bridged tools, and
// exposes a single "code_execution" meta-tool that runs LLM-written
// JavaScript in the sandbox against that whole set.
package toolcaller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/mcpbridge"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/metrics"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/sandbox"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/savings"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// mcpPrefix marks a tool name as externally MCP-bridged.
const mcpPrefix = "mcp_"

// CodeExecutionToolName is the fixed name of the meta-tool this package
// exposes in place of the underlying tool set.
const CodeExecutionToolName = "code_execution"

// Config configures a Caller.
type Config struct {
	// Tools is the full tool set to expose programmatically, local and MCP
	// mixed together (split by the "mcp_" name prefix).
	Tools []ptcall.Tool

	// Router dispatches MCP-prefixed calls to their owning server.
	Router mcpbridge.Dispatcher

	// SandboxConfig configures the underlying sandbox.Controller, minus its
	// LocalTools/MCPTools/Bridge fields, which Caller fills in.
	SandboxConfig sandbox.Config

	// BridgeOptions configures the mcpbridge.Bridge wrapping Router.
	BridgeOptions []mcpbridge.Option

	// SavingsOptions configures the savings.Accountant tallying each
	// Execute call's token-savings breakdown.
	SavingsOptions []savings.Option

	Logger ptcall.Logger
}

// Caller is the Programmatic Tool Caller.
type Caller struct {
	local map[string]ptcall.Tool
	mcp   map[string]ptcall.Tool

	controller *sandbox.Controller
	bridge     *mcpbridge.Bridge
	accountant *savings.Accountant
	logger     ptcall.Logger
}

// New builds a Caller from cfg: splits the tool set, wires an MCP bridge
// over Router, and constructs the sandbox.Controller that will run
// generated programs against both.
func New(cfg Config) (*Caller, error) {
	local := make(map[string]ptcall.Tool)
	mcp := make(map[string]ptcall.Tool)
	descriptors := make(map[string]*schema.Schema)

	for _, t := range cfg.Tools {
		if strings.HasPrefix(t.Name, mcpPrefix) {
			mcp[t.Name] = t
		} else {
			local[t.Name] = t
		}
		if t.InputSchema != nil {
			descriptors[t.Name] = t.InputSchema
		}
	}

	var bridge *mcpbridge.Bridge
	if len(mcp) > 0 {
		if cfg.Router == nil {
			return nil, fmt.Errorf("%w: MCP tools present but no Router configured", ptcall.ErrConfiguration)
		}
		opts := append([]mcpbridge.Option{mcpbridge.WithDescriptors(descriptors)}, cfg.BridgeOptions...)
		if cfg.Logger != nil {
			opts = append(opts, mcpbridge.WithLogger(cfg.Logger))
		}
		b, err := mcpbridge.New(cfg.Router, opts...)
		if err != nil {
			return nil, err
		}
		bridge = b
	} else {
		// The sandbox controller always requires a bridge; a router-less
		// bridge simply never receives an mcp_ call.
		b, err := mcpbridge.New(noopDispatcher{})
		if err != nil {
			return nil, err
		}
		bridge = b
	}

	sc := cfg.SandboxConfig
	sc.LocalTools = local
	sc.MCPTools = toolNames(mcp)
	sc.Bridge = bridge
	if sc.Logger == nil {
		sc.Logger = cfg.Logger
	}

	ctrl, err := sandbox.New(sc)
	if err != nil {
		return nil, err
	}

	return &Caller{
		local:      local,
		mcp:        mcp,
		controller: ctrl,
		bridge:     bridge,
		accountant: savings.New(cfg.SavingsOptions...),
		logger:     cfg.Logger,
	}, nil
}

type noopDispatcher struct{}

func (noopDispatcher) CallTool(context.Context, string, map[string]any) (any, error) {
	return nil, fmt.Errorf("%w: no MCP tools configured", ptcall.ErrUnknownTool)
}

func toolNames(m map[string]ptcall.Tool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllToolNames returns every tool name (local and MCP) this Caller exposes,
// sorted for deterministic documentation output.
func (c *Caller) AllToolNames() []string {
	names := make([]string, 0, len(c.local)+len(c.mcp))
	for name := range c.local {
		names = append(names, name)
	}
	for name := range c.mcp {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTools returns every underlying tool (local and MCP) this Caller wraps,
// sorted by name, for callers that need the descriptors themselves rather
// than just the names.
func (c *Caller) AllTools() []ptcall.Tool {
	names := c.AllToolNames()
	tools := make([]ptcall.Tool, 0, len(names))
	for _, name := range names {
		tool, _ := c.lookup(name)
		tools = append(tools, tool)
	}
	return tools
}

// ExecutionOutcome is what a code_execution call resolves to: the sandbox
// result plus the metadata envelope wrapped around it.
type ExecutionOutcome struct {
	Result   any               `json:"result"`
	Metadata ExecutionMetadata `json:"metadata"`
}

// TokenSavingsBreakdown is the four-category savings.Breakdown, reshaped
// into the metadata envelope's field names.
type TokenSavingsBreakdown struct {
	IntermediateResults int `json:"intermediateResults"`
	RoundTripContext    int `json:"roundTripContext"`
	ToolCallOverhead    int `json:"toolCallOverhead"`
	LLMDecisions        int `json:"llmDecisions"`
}

// ExecutionMetadata summarizes one code_execution run: tool-call counts and
// names split by kind, the Savings Accountant's breakdown, wall-clock
// duration, and the full list of physical tool calls observed.
type ExecutionMetadata struct {
	ToolCallCount      int `json:"toolCallCount"`
	LocalToolCallCount int `json:"localToolCallCount"`
	MCPToolCallCount   int `json:"mcpToolCallCount"`

	IntermediateTokensSaved int                   `json:"intermediateTokensSaved"`
	TotalTokensSaved        int                   `json:"totalTokensSaved"`
	TokenSavingsBreakdown   TokenSavingsBreakdown `json:"tokenSavingsBreakdown"`
	SavingsExplanation      string                `json:"savingsExplanation"`

	ToolsUsed      []string `json:"toolsUsed"`
	MCPToolsUsed   []string `json:"mcpToolsUsed"`
	LocalToolsUsed []string `json:"localToolsUsed"`

	ExecutionTimeMs  int64                    `json:"executionTimeMs"`
	SandboxToolCalls []ptcall.ToolCallRecord `json:"sandboxToolCalls"`

	Success bool `json:"success"`
}

// Execute runs code in the sandbox and packages the result per its
// metadata envelope. On sandbox failure, it still returns an outcome
// (Success: false) carrying whatever partial tool calls occurred, alongside
// the error.
func (c *Caller) Execute(ctx context.Context, code string) (ExecutionOutcome, error) {
	t0 := time.Now()
	result, err := c.controller.Execute(ctx, code)
	elapsed := time.Since(t0).Milliseconds()

	calls := result.ToolCalls
	breakdown := c.accountant.Compute(calls)
	toolsUsed, mcpToolsUsed, localToolsUsed := usedToolNames(calls)
	metrics.TokensSavedTotal.Add(float64(breakdown.TotalSaved))

	outcome := ExecutionOutcome{
		Result: Degrade(result.Output.Result),
		Metadata: ExecutionMetadata{
			ToolCallCount:      len(calls),
			LocalToolCallCount: breakdown.LocalCount,
			MCPToolCallCount:   breakdown.MCPCount,

			IntermediateTokensSaved: breakdown.IntermediateResultTokens,
			TotalTokensSaved:        breakdown.TotalSaved,
			TokenSavingsBreakdown: TokenSavingsBreakdown{
				IntermediateResults: breakdown.IntermediateResultTokens,
				RoundTripContext:    breakdown.RoundTripContextTokens,
				ToolCallOverhead:    breakdown.ToolCallOverheadTokens,
				LLMDecisions:        breakdown.LLMDecisionOutputTokens,
			},
			SavingsExplanation: breakdown.Summary,

			ToolsUsed:      toolsUsed,
			MCPToolsUsed:   mcpToolsUsed,
			LocalToolsUsed: localToolsUsed,

			ExecutionTimeMs:  elapsed,
			SandboxToolCalls: calls,

			Success: err == nil,
		},
	}
	return outcome, err
}

// usedToolNames derives the distinct tool names observed in calls, sorted
// for deterministic output, split into the overall/MCP/local sets the
// metadata envelope reports.
func usedToolNames(calls []ptcall.ToolCallRecord) (all, mcp, local []string) {
	allSet := make(map[string]bool)
	mcpSet := make(map[string]bool)
	localSet := make(map[string]bool)
	for _, c := range calls {
		allSet[c.ToolName] = true
		if c.IsMCP {
			mcpSet[c.ToolName] = true
		} else {
			localSet[c.ToolName] = true
		}
	}
	return sortedKeys(allSet), sortedKeys(mcpSet), sortedKeys(localSet)
}

func sortedKeys(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateCodeExecutionTool returns the single meta-tool descriptor this
// Caller exposes in place of its underlying tool set: {code: string} in,
// an ExecutionOutcome out.
func (c *Caller) CreateCodeExecutionTool() ptcall.Tool {
	return ptcall.Tool{
		Name:        CodeExecutionToolName,
		Description: c.codeExecutionDescription(),
		InputSchema: codeExecutionSchema(),
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			code, _ := args["code"].(string)
			if code == "" {
				return nil, fmt.Errorf("%w: code_execution requires a non-empty \"code\" string", ptcall.ErrConfiguration)
			}
			outcome, err := c.Execute(ctx, code)
			if err != nil {
				return outcome, err
			}
			return outcome, nil
		},
	}
}

// CreateEnhancedToolSet returns the tool set an LLM caller should actually
// see: the original tools, union the code_execution meta-tool. The
// underlying tools stay directly callable (an LLM can call "getUser"
// directly alongside code_execution) rather than being hidden behind it.
func (c *Caller) CreateEnhancedToolSet() []ptcall.Tool {
	return append(c.AllTools(), c.CreateCodeExecutionTool())
}
