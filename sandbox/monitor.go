package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/metrics"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/workerrpc"
)

// recordTracker accumulates the ptcall.ToolCallRecord entries for local tool
// calls dispatched by the monitor. MCP calls are not added here:
// mcpbridge.Bridge records them itself, and Controller.mergeRecords appends
// Bridge.Records() after these, since the two kinds don't require a strict
// merge order across them (see DESIGN.md).
type recordTracker struct {
	mu   sync.Mutex
	recs []ptcall.ToolCallRecord
}

func newRecordTracker() *recordTracker {
	return &recordTracker{}
}

func (t *recordTracker) add(rec ptcall.ToolCallRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recs = append(t.recs, rec)
}

func (t *recordTracker) records() []ptcall.ToolCallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ptcall.ToolCallRecord, len(t.recs))
	copy(out, t.recs)
	return out
}

// monitor polls the worker's scratch directory every MonitorInterval,
// dispatching every pending local and MCP request file it finds. Requests
// observed in the same tick are dispatched concurrently so that a
// Promise.all in the generated program achieves genuine parallelism.
func (c *Controller) monitor(ctx context.Context, worker WorkerEndpoint, tracker *recordTracker) {
	ticker := time.NewTicker(c.cfg.MonitorInterval)
	defer ticker.Stop()

	scratch := worker.ScratchDir()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx, worker, scratch, tracker)
		}
	}
}

func (c *Controller) pollOnce(ctx context.Context, worker WorkerEndpoint, scratch string, tracker *recordTracker) {
	names, err := worker.ListFiles(ctx, scratch)
	if err != nil {
		return
	}

	var wg sync.WaitGroup
	for _, name := range names {
		kind, id, ok := workerrpc.ParseRequestName(name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(kind workerrpc.Kind, id, name string) {
			defer wg.Done()
			c.dispatchOne(ctx, worker, scratch, kind, id, name, tracker)
		}(kind, id, name)
	}
	wg.Wait()
}

func (c *Controller) dispatchOne(ctx context.Context, worker WorkerEndpoint, scratch string, kind workerrpc.Kind, id, name string, tracker *recordTracker) {
	reqPath := filepath.Join(scratch, name)
	raw, err := worker.ReadFile(ctx, reqPath)
	if err != nil {
		// Another poll tick (or the worker itself) already consumed it.
		return
	}
	worker.RemoveFile(ctx, reqPath)

	var req workerrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}

	start := time.Now()
	var resp workerrpc.Response

	switch kind {
	case workerrpc.MCP:
		// The bridge appends its own ToolCallRecord internally; the monitor
		// only needs the wire response. req.Args is passed through raw
		// (not pre-flattened via argsAsMap) since the bridge's Parameter
		// Normalizer needs to see a bare scalar or array to apply its
		// name-heuristic wrapping.
		result, callErr := c.cfg.Bridge.Handle(ctx, req.ToolName, req.Args)
		if callErr != nil {
			resp.Error = callErr.Error()
		} else {
			resp.Data = result
		}
	default:
		args := argsAsMap(req.Args)
		rec := ptcall.ToolCallRecord{ToolName: req.ToolName, Args: args}
		tool, ok := c.cfg.LocalTools[req.ToolName]
		status := "ok"
		if !ok || tool.Execute == nil {
			resp.Error = fmt.Sprintf("%v: %s", ptcall.ErrUnknownTool, req.ToolName)
			rec.Error = resp.Error
			status = "error"
		} else {
			result, callErr := tool.Execute(ctx, args)
			if callErr != nil {
				resp.Error = callErr.Error()
				rec.Error = callErr.Error()
				status = "error"
			} else {
				resp.Data = result
				rec.RawResult = result
				rec.TransformedResult = result
			}
		}
		rec.ElapsedMs = time.Since(start).Milliseconds()
		metrics.ToolCallsTotal.WithLabelValues(req.ToolName, "local", status).Inc()
		metrics.ToolCallDuration.WithLabelValues(req.ToolName, "local").Observe(time.Since(start).Seconds())
		tracker.add(rec)
	}

	respPath := workerrpc.ResponsePath(scratch, kind, id)
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = worker.WriteFile(ctx, respPath, data)
}

// argsAsMap normalizes the request's decoded args into a map, tolerating the
// variadic-array shape emitted by local stubs (writeLocalStub sends
// {args: [...]}) versus the single-record shape MCP stubs send.
func argsAsMap(args any) map[string]any {
	switch v := args.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) == 1 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
		out := make(map[string]any, len(v))
		for i, a := range v {
			out[fmt.Sprintf("arg%d", i)] = a
		}
		return out
	default:
		return map[string]any{}
	}
}
