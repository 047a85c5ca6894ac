// Package contextfilter implements the Context Filter: it
// mediates the message stream handed back to the LLM, admitting only
// code_execution tool-result messages and folding every other tool result
// into a running tokens-saved estimate instead of forwarding it verbatim.
package contextfilter

import (
	"encoding/json"
	"fmt"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/toolcaller"
)

// Message is one entry in a conversation's message stream, in the shape
// this filter needs to make an admit/drop decision: a role, a tool name
// when Role is "tool", and the raw content to size or forward.
type Message struct {
	Role     string
	ToolName string
	Content  any
}

// Filter mediates a message stream. Not safe for concurrent
// use by multiple goroutines calling Apply on the same Filter.
type Filter struct {
	toolCallCount int
	tokensSaved   int
}

// New constructs an empty Filter.
func New() *Filter {
	return &Filter{}
}

// Apply processes messages in order, returning only the ones admitted:
// every non-tool message, and tool-result messages whose ToolName is
// toolcaller.CodeExecutionToolName. Every other tool-result message is
// dropped and its estimated size folded into the running tokens-saved
// counter, using a ⌈JSON-length/4⌉ estimate.
func (f *Filter) Apply(messages []Message) []Message {
	admitted := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != "tool" {
			admitted = append(admitted, m)
			continue
		}
		if m.ToolName == toolcaller.CodeExecutionToolName {
			f.toolCallCount++
			admitted = append(admitted, m)
			continue
		}
		f.tokensSaved += estimateTokens(m.Content)
	}
	return admitted
}

// estimateTokens is the ⌈JSON-length/4⌉ estimator. A value that
// can't be marshaled contributes zero rather than aborting the filter.
func estimateTokens(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return (len(data) + 3) / 4
}

// TokensSaved returns the running estimate of tokens kept out of context
// by dropping non-code_execution tool results.
func (f *Filter) TokensSaved() int {
	return f.tokensSaved
}

// ToolCallCount returns how many code_execution results have been admitted.
func (f *Filter) ToolCallCount() int {
	return f.toolCallCount
}

// Summary renders a compact narration string: "Executed T: n tool
// calls, saved k tokens", where T names the tool that was actually executed
// (always code_execution — everything else is what got filtered out).
func (f *Filter) Summary() string {
	return fmt.Sprintf("Executed %s: %d tool calls, saved %d tokens",
		toolcaller.CodeExecutionToolName, f.toolCallCount, f.tokensSaved)
}

// Reset clears accumulated counters, e.g. between separate conversations
// sharing one Filter instance.
func (f *Filter) Reset() {
	f.toolCallCount = 0
	f.tokensSaved = 0
}
