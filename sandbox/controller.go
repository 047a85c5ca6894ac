package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/mcpbridge"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/metrics"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/scriptgen"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/workerrpc"
)

// Defaults for the controller's timing knobs.
const (
	DefaultMonitorInterval = 100 * time.Millisecond
	DefaultOuterTimeout    = 25 * time.Second
)

// Config configures a Controller.
type Config struct {
	// Provisioner acquires the singleton worker.
	Provisioner WorkerProvisioner

	// LocalTools is the registry of tools dispatched directly in the host
	// process, keyed by name.
	LocalTools map[string]ptcall.Tool

	// MCPTools are the externally-bridged MCP tool names (already carrying
	// the "mcp_" prefix) to expose stubs for.
	MCPTools []string

	// Bridge dispatches MCP-prefixed tool calls.
	Bridge *mcpbridge.Bridge

	// MonitorInterval is the RPC monitor's poll tick. Defaults to 100ms.
	MonitorInterval time.Duration

	// OuterTimeout guards one Execute call end to end. Defaults to 25s.
	OuterTimeout time.Duration

	// StubTimeout is passed through to scriptgen as the per-call stub
	// poll timeout. Defaults to 30s (the value of mcpbridge.DefaultTimeout)
	// if unset; it does not follow a timeout set on Bridge via WithTimeout.
	StubTimeout time.Duration

	Logger ptcall.Logger
}

func (c *Config) applyDefaults() {
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if c.OuterTimeout <= 0 {
		c.OuterTimeout = DefaultOuterTimeout
	}
	if c.StubTimeout <= 0 {
		c.StubTimeout = 30 * time.Second
	}
}

// Validate reports whether cfg can construct a Controller.
func (c *Config) Validate() error {
	if c.Provisioner == nil {
		return fmt.Errorf("%w: sandbox requires a WorkerProvisioner", ptcall.ErrConfiguration)
	}
	if c.Bridge == nil {
		return fmt.Errorf("%w: sandbox requires an MCP Bridge", ptcall.ErrConfiguration)
	}
	return nil
}

// Result is what Execute returns: the worker's execution output document
// plus every tool-call record observed while running it.
type Result struct {
	Output    workerrpc.Output
	ToolCalls []ptcall.ToolCallRecord
}

// Controller is the Sandbox Controller.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	worker  WorkerEndpoint
	release func()
}

// New constructs a Controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Controller{cfg: cfg}, nil
}

// Execute runs program in the worker, following an execute(program)
// algorithm: syntax-validate, ensure a worker, write and run the script,
// concurrently service RPC requests, collect the output, and merge
// tool-call records. It retries at most once on a stale-session failure.
func (c *Controller) Execute(ctx context.Context, program string) (Result, error) {
	t0 := time.Now()
	result, err := c.execute(ctx, program, false)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CodeExecutionDuration.WithLabelValues(status).Observe(time.Since(t0).Seconds())
	return result, err
}

func (c *Controller) execute(ctx context.Context, program string, retried bool) (Result, error) {
	if err := scriptgen.ValidateSyntax(program); err != nil {
		return Result{}, err
	}

	c.cfg.Bridge.Reset()

	worker, err := c.ensureWorker(ctx)
	if err != nil {
		return Result{}, err
	}

	script, err := scriptgen.Generate(scriptgen.Options{
		LocalTools:       toolNames(c.cfg.LocalTools),
		MCPTools:         c.cfg.MCPTools,
		Body:             program,
		ScratchDir:       worker.ScratchDir(),
		StubPollInterval: 50 * time.Millisecond,
		StubTimeout:      c.cfg.StubTimeout,
	})
	if err != nil {
		return Result{}, err
	}

	outerCtx, cancel := context.WithTimeout(ctx, c.cfg.OuterTimeout)
	defer cancel()

	scratchDir := worker.ScratchDir()
	scriptPath := workerrpc.ScriptPath(scratchDir)
	outputPath := workerrpc.OutputPath(scratchDir)

	if err := worker.WriteFile(outerCtx, scriptPath, []byte(script)); err != nil {
		return Result{}, fmt.Errorf("%w: writing script: %v", ptcall.ErrProvisioningFailed, err)
	}

	monitorCtx, stopMonitor := context.WithCancel(outerCtx)
	tracker := newRecordTracker()
	var monitorWG sync.WaitGroup
	monitorWG.Add(1)
	go func() {
		defer monitorWG.Done()
		c.monitor(monitorCtx, worker, tracker)
	}()

	stderr, runErr := worker.RunScript(outerCtx, scriptPath)
	stopMonitor()
	monitorWG.Wait()

	if runErr != nil {
		if !retried && isStaleSession(runErr) {
			metrics.WorkerStaleSessionRetriesTotal.Inc()
			c.invalidateWorker()
			return c.execute(ctx, program, true)
		}
		if outerCtx.Err() == context.DeadlineExceeded {
			return Result{ToolCalls: c.mergeRecords(tracker)}, fmt.Errorf("%w: %v", ptcall.ErrExecutionTimeout, runErr)
		}
		return Result{ToolCalls: c.mergeRecords(tracker)}, fmt.Errorf("%w: %v (stderr: %s)", ptcall.ErrProvisioningFailed, runErr, stderr)
	}

	raw, err := worker.ReadFile(outerCtx, outputPath)
	worker.RemoveFile(context.Background(), scriptPath)
	worker.RemoveFile(context.Background(), outputPath)

	merged := c.mergeRecords(tracker)

	if err != nil || len(raw) == 0 {
		return Result{ToolCalls: merged}, fmt.Errorf("%w: %v", ptcall.ErrNoOutput, err)
	}

	var output workerrpc.Output
	if err := json.Unmarshal(raw, &output); err != nil {
		return Result{ToolCalls: merged}, fmt.Errorf("%w: %v", ptcall.ErrMalformedOutput, err)
	}

	result := Result{Output: output, ToolCalls: merged}
	if !output.Success {
		return result, fmt.Errorf("%w: %s", ptcall.ErrCodeExecution, output.Error)
	}
	return result, nil
}

// mergeRecords combines the locally-tracked call records with the bridge's
// own MCP records. Cross-kind ordering is left unspecified, matching
// Promise.all semantics; each kind is individually in observation order.
func (c *Controller) mergeRecords(tracker *recordTracker) []ptcall.ToolCallRecord {
	local := tracker.records()
	mcp := c.cfg.Bridge.Records()
	merged := make([]ptcall.ToolCallRecord, 0, len(local)+len(mcp))
	merged = append(merged, local...)
	merged = append(merged, mcp...)
	return merged
}

func (c *Controller) ensureWorker(ctx context.Context) (WorkerEndpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.worker != nil {
		return c.worker, nil
	}
	t0 := time.Now()
	worker, release, err := c.cfg.Provisioner.Provision(ctx)
	kind := fmt.Sprintf("%T", c.cfg.Provisioner)
	if err != nil {
		metrics.WorkerProvisioningDuration.WithLabelValues(kind, "error").Observe(time.Since(t0).Seconds())
		if errors.Is(err, ptcall.ErrAuthRequired) {
			// Already carries the distinguished auth sub-kind (see
			// classifyProvisioningError in provision_k8s.go); wrapping it in
			// ErrProvisioningFailed here would erase that classification.
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ptcall.ErrProvisioningFailed, err)
	}
	metrics.WorkerProvisioningDuration.WithLabelValues(kind, "ok").Observe(time.Since(t0).Seconds())
	c.worker = worker
	c.release = release
	return worker, nil
}

func (c *Controller) invalidateWorker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release != nil {
		c.release()
	}
	c.worker = nil
	c.release = nil
}

// isStaleSession matches the transient-failure heuristic:
// errors whose message contains "Gone", "410", or "ECONNRESET".
func isStaleSession(err error) bool {
	msg := err.Error()
	for _, needle := range []string{"Gone", "410", "ECONNRESET"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func toolNames(tools map[string]ptcall.Tool) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	return names
}
