// Package savings implements the Savings Accountant: it
// estimates how many tokens programmatic tool calling saved versus a
// conventional per-call round trip through the LLM's context window.
package savings

import (
	"encoding/json"
	"fmt"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// DefaultBaseContextTokens is B, the default per-round-trip context
// estimate charged for every call after the first.
const DefaultBaseContextTokens = 7000

// unknownResultSize is charged for a call whose result size can't be
// determined (e.g. it errored before producing one).
const unknownResultSize = 50

// Config configures an Accountant.
type Config struct {
	// BaseContextTokens is B. Defaults to 7,000.
	BaseContextTokens int
}

func (c *Config) applyDefaults() {
	if c.BaseContextTokens <= 0 {
		c.BaseContextTokens = DefaultBaseContextTokens
	}
}

// Option is a functional option for New.
type Option func(*Config)

// WithBaseContextTokens overrides B.
func WithBaseContextTokens(n int) Option {
	return func(c *Config) { c.BaseContextTokens = n }
}

// Accountant computes token-savings breakdowns per Config.
type Accountant struct {
	cfg Config
}

// New constructs an Accountant.
func New(opts ...Option) *Accountant {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()
	return &Accountant{cfg: cfg}
}

// Breakdown is the four-category tokens-saved estimate for one batch of
// tool calls, plus a human-readable summary.
type Breakdown struct {
	IntermediateResultTokens int
	RoundTripContextTokens   int
	ToolCallOverheadTokens   int
	LLMDecisionOutputTokens  int
	TotalSaved               int
	LocalCount               int
	MCPCount                 int
	Summary                  string
}

// Compute derives a Breakdown from calls, using four formulas:
//
//	intermediate  = Σ ⌈JSON(result) ÷ 4⌉
//	round-trip    = Σ_{i=1..N-1} (B + Σ_{j<i} size_j)   (0-based call index)
//	overhead      = 40·N
//	llm-decision  = 80·(N-1)
//
// N ≤ 1 short-circuits to an all-zero breakdown with a fixed summary.
func (a *Accountant) Compute(calls []ptcall.ToolCallRecord) Breakdown {
	n := len(calls)
	local, mcp := countKinds(calls)

	if n <= 1 {
		return Breakdown{
			LocalCount: local,
			MCPCount:   mcp,
			Summary:    "No savings (single tool call)",
		}
	}

	sizes := make([]int, n)
	intermediate := 0
	for i, c := range calls {
		size := resultTokens(c)
		sizes[i] = size
		intermediate += size
	}

	roundTrip := 0
	priorSum := 0
	for i := 1; i < n; i++ {
		priorSum += sizes[i-1]
		roundTrip += a.cfg.BaseContextTokens + priorSum
	}

	overhead := 40 * n
	decision := 80 * (n - 1)
	total := intermediate + roundTrip + overhead + decision

	return Breakdown{
		IntermediateResultTokens: intermediate,
		RoundTripContextTokens:   roundTrip,
		ToolCallOverheadTokens:   overhead,
		LLMDecisionOutputTokens:  decision,
		TotalSaved:               total,
		LocalCount:               local,
		MCPCount:                 mcp,
		Summary: fmt.Sprintf(
			"Saved ~%d tokens across %d tool calls (%d local, %d MCP)",
			total, n, local, mcp,
		),
	}
}

func countKinds(calls []ptcall.ToolCallRecord) (local, mcp int) {
	for _, c := range calls {
		if c.IsMCP {
			mcp++
		} else {
			local++
		}
	}
	return local, mcp
}

// resultTokens estimates one call's result size in tokens, using the
// ⌈JSON(result) ÷ 4⌉ estimator. A call with no usable result (errored, or
// fails to marshal) is charged the unknown-size estimate.
func resultTokens(c ptcall.ToolCallRecord) int {
	result := c.TransformedResult
	if result == nil {
		result = c.RawResult
	}
	if result == nil {
		return unknownResultSize
	}
	data, err := json.Marshal(result)
	if err != nil {
		return unknownResultSize
	}
	return (len(data) + 3) / 4
}
