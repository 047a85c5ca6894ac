package contextfilter

import "testing"

func TestApplyPassesThroughUserAndAssistantMessages(t *testing.T) {
	f := New()
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	got := f.Apply(msgs)
	if len(got) != 2 {
		t.Fatalf("Apply() len = %d, want 2", len(got))
	}
	if f.TokensSaved() != 0 {
		t.Fatalf("TokensSaved() = %d, want 0", f.TokensSaved())
	}
}

func TestApplyAdmitsOnlyCodeExecutionToolResults(t *testing.T) {
	f := New()
	msgs := []Message{
		{Role: "tool", ToolName: "code_execution", Content: map[string]any{"result": 1}},
		{Role: "tool", ToolName: "scrape", Content: map[string]any{"html": "<p>hi</p>"}},
	}
	got := f.Apply(msgs)
	if len(got) != 1 || got[0].ToolName != "code_execution" {
		t.Fatalf("Apply() = %+v, want only the code_execution message", got)
	}
	if f.ToolCallCount() != 1 {
		t.Fatalf("ToolCallCount() = %d, want 1", f.ToolCallCount())
	}
	if f.TokensSaved() == 0 {
		t.Fatal("expected non-zero tokens saved from the dropped scrape result")
	}
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	// `"ab"` is 4 bytes of JSON; ceil(4/4) = 1.
	if got := estimateTokens("ab"); got != 1 {
		t.Fatalf("estimateTokens(\"ab\") = %d, want 1", got)
	}
	// `"abcde"` is 7 bytes; ceil(7/4) = 2.
	if got := estimateTokens("abcde"); got != 2 {
		t.Fatalf("estimateTokens(\"abcde\") = %d, want 2", got)
	}
}

func TestSummaryFormat(t *testing.T) {
	f := New()
	f.Apply([]Message{
		{Role: "tool", ToolName: "code_execution", Content: "x"},
		{Role: "tool", ToolName: "other", Content: "abcdefgh"},
	})
	want := "Executed code_execution: 1 tool calls, saved 3 tokens"
	if got := f.Summary(); got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}

func TestResetClearsCounters(t *testing.T) {
	f := New()
	f.Apply([]Message{{Role: "tool", ToolName: "code_execution", Content: "x"}})
	f.Reset()
	if f.ToolCallCount() != 0 || f.TokensSaved() != 0 {
		t.Fatalf("after Reset(): count=%d saved=%d, want 0/0", f.ToolCallCount(), f.TokensSaved())
	}
}
