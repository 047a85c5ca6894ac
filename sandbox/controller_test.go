package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/mcpbridge"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/workerrpc"
)

// fakeDispatcher is a mcpbridge.Dispatcher stub for controller tests.
type fakeDispatcher struct {
	fn func(ctx context.Context, name string, args map[string]any) (any, error)
}

func (d *fakeDispatcher) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if d.fn != nil {
		return d.fn(ctx, name, args)
	}
	return map[string]any{"ok": true}, nil
}

func newTestBridge(t *testing.T, fn func(ctx context.Context, name string, args map[string]any) (any, error)) *mcpbridge.Bridge {
	t.Helper()
	b, err := mcpbridge.New(&fakeDispatcher{fn: fn})
	if err != nil {
		t.Fatalf("mcpbridge.New() error = %v", err)
	}
	return b
}

// fakeWorker is an in-memory WorkerEndpoint. RunScript executes a canned
// "program" function supplied by the test in place of an actual Node.js
// process, simulating the RPC file exchange a real worker would drive.
type fakeWorker struct {
	mu    sync.Mutex
	files map[string][]byte

	runScript func(ctx context.Context, w *fakeWorker) (string, error)
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{files: make(map[string][]byte)}
}

func (w *fakeWorker) ScratchDir() string { return "/scratch" }

func (w *fakeWorker) WriteFile(_ context.Context, path string, content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = append([]byte(nil), content...)
	return nil
}

func (w *fakeWorker) ReadFile(_ context.Context, path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	if !ok {
		return nil, fmt.Errorf("fakeWorker: no such file %s", path)
	}
	return data, nil
}

func (w *fakeWorker) ListFiles(_ context.Context, dir string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var names []string
	prefix := dir + "/"
	for p := range w.files {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			names = append(names, p[len(prefix):])
		}
	}
	return names, nil
}

func (w *fakeWorker) RemoveFile(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
	return nil
}

func (w *fakeWorker) RunScript(ctx context.Context, path string) (string, error) {
	if w.runScript != nil {
		return w.runScript(ctx, w)
	}
	return "", nil
}

func (w *fakeWorker) writeRequest(kind workerrpc.Kind, id, tool string, args any) {
	req := workerrpc.Request{ToolName: tool, Args: args, CallID: id, Kind: kind}
	data, _ := json.Marshal(req)
	_ = w.WriteFile(context.Background(), workerrpc.RequestPath(w.ScratchDir(), kind, id), data)
}

func (w *fakeWorker) waitForResponse(t *testing.T, kind workerrpc.Kind, id string) workerrpc.Response {
	t.Helper()
	path := workerrpc.ResponsePath(w.ScratchDir(), kind, id)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for response file %s", path)
		default:
		}
		if data, err := w.ReadFile(context.Background(), path); err == nil {
			var resp workerrpc.Response
			if err := json.Unmarshal(data, &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			return resp
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type staticProvisioner struct {
	worker WorkerEndpoint
}

func (p *staticProvisioner) Provision(context.Context) (WorkerEndpoint, func(), error) {
	return p.worker, func() {}, nil
}

func echoTool() ptcall.Tool {
	return ptcall.Tool{
		Name: "echo",
		Execute: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestControllerExecuteSuccess(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		w.writeRequest(workerrpc.Local, "1", "echo", []any{map[string]any{"x": 1}})
		resp := w.waitForResponse(t, workerrpc.Local, "1")
		if resp.Failed() {
			return "", fmt.Errorf("echo failed: %s", resp.Error)
		}
		out := workerrpc.Output{Success: true, Result: resp.Data}
		data, _ := json.Marshal(out)
		return "", w.WriteFile(ctx, workerrpc.OutputPath(w.ScratchDir()), data)
	}

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		LocalTools:      map[string]ptcall.Tool{"echo": echoTool()},
		Bridge:          newTestBridge(t, nil),
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := ctrl.Execute(context.Background(), "return await echo({x: 1});")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Output.Success {
		t.Fatalf("expected success output, got %+v", result.Output)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ToolName != "echo" {
		t.Fatalf("ToolCalls = %+v, want one echo record", result.ToolCalls)
	}
}

func TestControllerExecuteParallelFanOut(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		for i := 0; i < 3; i++ {
			w.writeRequest(workerrpc.Local, fmt.Sprintf("%d", i), "echo", []any{map[string]any{"n": i}})
		}
		for i := 0; i < 3; i++ {
			if resp := w.waitForResponse(t, workerrpc.Local, fmt.Sprintf("%d", i)); resp.Failed() {
				return "", fmt.Errorf("call %d failed: %s", i, resp.Error)
			}
		}
		out := workerrpc.Output{Success: true, Result: "done"}
		data, _ := json.Marshal(out)
		return "", w.WriteFile(ctx, workerrpc.OutputPath(w.ScratchDir()), data)
	}

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		LocalTools:      map[string]ptcall.Tool{"echo": echoTool()},
		Bridge:          newTestBridge(t, nil),
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := ctrl.Execute(context.Background(), "await Promise.all([echo(1), echo(2), echo(3)]);")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.ToolCalls) != 3 {
		t.Fatalf("ToolCalls len = %d, want 3", len(result.ToolCalls))
	}
}

func TestControllerExecuteUnknownLocalTool(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		w.writeRequest(workerrpc.Local, "1", "missing", []any{})
		resp := w.waitForResponse(t, workerrpc.Local, "1")
		if !resp.Failed() {
			t.Fatalf("expected failure response for unknown tool")
		}
		out := workerrpc.Output{Success: false, Error: resp.Error}
		data, _ := json.Marshal(out)
		return "", w.WriteFile(ctx, workerrpc.OutputPath(w.ScratchDir()), data)
	}

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		LocalTools:      map[string]ptcall.Tool{},
		Bridge:          newTestBridge(t, nil),
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = ctrl.Execute(context.Background(), "await missing();")
	if !errors.Is(err, ptcall.ErrCodeExecution) {
		t.Fatalf("Execute() error = %v, want ErrCodeExecution", err)
	}
}

func TestControllerExecuteMCPCall(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		w.writeRequest(workerrpc.MCP, "1", "mcp_search", map[string]any{"query": "go"})
		resp := w.waitForResponse(t, workerrpc.MCP, "1")
		if resp.Failed() {
			return "", fmt.Errorf("mcp call failed: %s", resp.Error)
		}
		out := workerrpc.Output{Success: true, Result: resp.Data}
		data, _ := json.Marshal(out)
		return "", w.WriteFile(ctx, workerrpc.OutputPath(w.ScratchDir()), data)
	}

	bridge := newTestBridge(t, func(_ context.Context, name string, args map[string]any) (any, error) {
		return map[string]any{"content": []any{map[string]any{"type": "text", "text": "result for " + fmt.Sprint(args["query"])}}}, nil
	})

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		Bridge:          bridge,
		MCPTools:        []string{"mcp_search"},
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := ctrl.Execute(context.Background(), "return await mcp_search({query: 'go'});")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.ToolCalls) != 1 || !result.ToolCalls[0].IsMCP {
		t.Fatalf("expected one MCP record from the bridge, got %+v", result.ToolCalls)
	}
}

func TestControllerExecuteOuterTimeout(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		Bridge:          newTestBridge(t, nil),
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = ctrl.Execute(context.Background(), "while (true) {}")
	if !errors.Is(err, ptcall.ErrExecutionTimeout) {
		t.Fatalf("Execute() error = %v, want ErrExecutionTimeout", err)
	}
}

func TestControllerExecuteOuterTimeoutPreservesInFlightToolCalls(t *testing.T) {
	worker := newFakeWorker()
	worker.runScript = func(ctx context.Context, w *fakeWorker) (string, error) {
		w.writeRequest(workerrpc.MCP, "1", "mcp_lookup", map[string]any{"id": "42"})
		<-ctx.Done()
		return "", ctx.Err()
	}

	bridge := newTestBridge(t, func(_ context.Context, name string, args map[string]any) (any, error) {
		return map[string]any{"content": []any{}, "isError": false}, nil
	})

	ctrl, err := New(Config{
		Provisioner:     &staticProvisioner{worker: worker},
		Bridge:          bridge,
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := ctrl.Execute(context.Background(), "while (true) {}")
	if !errors.Is(err, ptcall.ErrExecutionTimeout) {
		t.Fatalf("Execute() error = %v, want ErrExecutionTimeout", err)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ToolName != "mcp_lookup" {
		t.Fatalf("ToolCalls = %v, want the in-flight mcp_lookup record preserved despite the timeout", result.ToolCalls)
	}
}

func TestControllerExecuteRetriesOnceOnStaleSession(t *testing.T) {
	var provisions int
	worker := newFakeWorker()

	provisioner := &countingProvisioner{
		provision: func(context.Context) (WorkerEndpoint, func(), error) {
			provisions++
			w := newFakeWorker()
			if provisions == 1 {
				w.runScript = func(ctx context.Context, _ *fakeWorker) (string, error) {
					return "", errors.New("410 Gone: session expired")
				}
			} else {
				w.runScript = func(ctx context.Context, ww *fakeWorker) (string, error) {
					out := workerrpc.Output{Success: true, Result: "ok"}
					data, _ := json.Marshal(out)
					return "", ww.WriteFile(ctx, workerrpc.OutputPath(ww.ScratchDir()), data)
				}
			}
			worker = w
			return w, func() {}, nil
		},
	}

	ctrl, err := New(Config{
		Provisioner:     provisioner,
		Bridge:          newTestBridge(t, nil),
		MonitorInterval: 5 * time.Millisecond,
		OuterTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := ctrl.Execute(context.Background(), "return 1;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if provisions != 2 {
		t.Fatalf("provisions = %d, want 2 (retry once)", provisions)
	}
	if !result.Output.Success {
		t.Fatalf("expected success after retry, got %+v", result.Output)
	}
	_ = worker
}

type countingProvisioner struct {
	provision func(context.Context) (WorkerEndpoint, func(), error)
}

func (p *countingProvisioner) Provision(ctx context.Context) (WorkerEndpoint, func(), error) {
	return p.provision(ctx)
}

func TestControllerExecuteRejectsInvalidSyntax(t *testing.T) {
	worker := newFakeWorker()
	ran := false
	worker.runScript = func(context.Context, *fakeWorker) (string, error) {
		ran = true
		return "", nil
	}
	ctrl, err := New(Config{
		Provisioner: &staticProvisioner{worker: worker},
		Bridge:      newTestBridge(t, nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = ctrl.Execute(context.Background(), "function broken( {")
	if err == nil {
		t.Fatal("expected syntax error before any worker interaction")
	}
	if ran {
		t.Fatal("worker.RunScript should never be invoked on invalid syntax")
	}
}

func TestConfigValidateRequiresProvisionerAndBridge(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ptcall.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration", err)
	}
	if _, err := New(Config{Provisioner: &staticProvisioner{worker: newFakeWorker()}}); !errors.Is(err, ptcall.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration (missing bridge)", err)
	}
}
