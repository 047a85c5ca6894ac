package sandbox

import (
	"context"
	"fmt"
	"testing"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

func TestArgsAsMapUnwrapsSingleObjectVariadic(t *testing.T) {
	got := argsAsMap([]any{map[string]any{"a": 1}})
	if got["a"] != 1 {
		t.Fatalf("argsAsMap() = %+v, want a=1", got)
	}
}

func TestArgsAsMapNumbersPositionalArgs(t *testing.T) {
	got := argsAsMap([]any{"x", "y"})
	if got["arg0"] != "x" || got["arg1"] != "y" {
		t.Fatalf("argsAsMap() = %+v, want arg0=x arg1=y", got)
	}
}

func TestArgsAsMapPassesThroughMap(t *testing.T) {
	m := map[string]any{"q": "search"}
	got := argsAsMap(m)
	if got["q"] != "search" {
		t.Fatalf("argsAsMap() = %+v, want q=search", got)
	}
}

func TestArgsAsMapNilFallsBackToEmpty(t *testing.T) {
	got := argsAsMap(nil)
	if len(got) != 0 {
		t.Fatalf("argsAsMap(nil) = %+v, want empty map", got)
	}
}

func TestRecordTrackerAddIsConcurrencySafe(t *testing.T) {
	tracker := newRecordTracker()
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			tracker.add(ptcall.ToolCallRecord{ToolName: fmt.Sprintf("t%d", i)})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	if len(tracker.records()) != 20 {
		t.Fatalf("records() len = %d, want 20", len(tracker.records()))
	}
}

func TestPollOnceIgnoresNonRequestFiles(t *testing.T) {
	worker := newFakeWorker()
	_ = worker.WriteFile(context.Background(), "/scratch/execute.js", []byte("noop"))
	tracker := newRecordTracker()

	ctrl, err := New(Config{
		Provisioner: &staticProvisioner{worker: worker},
		Bridge:      newTestBridge(t, nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctrl.pollOnce(context.Background(), worker, worker.ScratchDir(), tracker)
	if len(tracker.records()) != 0 {
		t.Fatalf("expected no records from a non-request file, got %+v", tracker.records())
	}
}
