// Package mcpbridge implements the MCP Bridge: the per-tool
// dispatcher that normalizes arguments in, executes against a Dispatcher,
// transforms the response out, learns an output shape, and short-circuits
// repeated failures with a circuit breaker.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/metrics"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/normalize"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// DefaultMaxRetries is the circuit breaker's default failure threshold.
const DefaultMaxRetries = 3

// DefaultTimeout is the bridge's own per-call timeout, distinct from the
// outer 25s code_execution guard the sandbox controller applies.
const DefaultTimeout = 30 * time.Second

// Dispatcher executes a normalized call against an MCP tool, returning
// either a flat record or the raw MCP envelope (which the bridge will
// pass through normalize.Response). mcpclient.Client satisfies this.
type Dispatcher interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Config configures a Bridge.
type Config struct {
	Dispatcher  Dispatcher
	Descriptors map[string]*schema.Schema // tool name -> declared input schema
	MaxRetries  int
	Timeout     time.Duration
	Logger      ptcall.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate reports whether cfg can construct a Bridge.
func (c *Config) Validate() error {
	if c.Dispatcher == nil {
		return fmt.Errorf("%w: mcpbridge requires a Dispatcher", ptcall.ErrConfiguration)
	}
	return nil
}

// Option is a functional option for New, following this module's
// applyDefaults()/Validate() + option convention.
type Option func(*Config)

// WithMaxRetries overrides the circuit breaker's failure threshold.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithTimeout overrides the bridge's per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger attaches a logger.
func WithLogger(l ptcall.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithDescriptors sets the per-tool declared input schema map.
func WithDescriptors(descriptors map[string]*schema.Schema) Option {
	return func(c *Config) { c.Descriptors = descriptors }
}

// Bridge is the MCP Bridge.
type Bridge struct {
	cfg Config

	mu             sync.Mutex
	records        []ptcall.ToolCallRecord
	failureCounts  map[string]int
	learnedSchemas map[string]*LearnedSchema
}

// New constructs a Bridge dispatching through dispatcher.
func New(dispatcher Dispatcher, opts ...Option) (*Bridge, error) {
	cfg := Config{Dispatcher: dispatcher}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Bridge{
		cfg:            cfg,
		failureCounts:  make(map[string]int),
		learnedSchemas: make(map[string]*LearnedSchema),
	}, nil
}

// Handle executes one MCP tool call end to end: normalize, circuit-check,
// dispatch, transform, learn, record. It implements the handle(request)
// algorithm end to end.
func (b *Bridge) Handle(ctx context.Context, name string, args any) (any, error) {
	t0 := time.Now()

	sch := b.cfg.Descriptors[name]
	normResult := normalize.Parameters(name, args, sch)
	normalized := normResult.Normalized
	recordArgs := argsForRecord(args)

	sig := b.signature(name, normalized, t0)

	b.mu.Lock()
	if b.failureCounts[sig] >= b.cfg.MaxRetries {
		count := b.failureCounts[sig]
		b.mu.Unlock()
		err := fmt.Errorf("%w: tool %q failed %d times with parameters %s; try different arguments",
			ptcall.ErrCircuitOpen, name, count, sig)
		metrics.CircuitBreakerTripsTotal.WithLabelValues(name).Inc()
		metrics.ToolCallsTotal.WithLabelValues(name, "mcp", "error").Inc()
		b.appendRecord(ptcall.ToolCallRecord{
			ToolName:       name,
			Args:           recordArgs,
			NormalizedArgs: normalized,
			Error:          err.Error(),
			IsMCP:          true,
			ElapsedMs:      time.Since(t0).Milliseconds(),
		})
		return nil, err
	}
	b.mu.Unlock()

	callCtx := ctx
	var cancel context.CancelFunc
	if b.cfg.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	raw, err := b.cfg.Dispatcher.CallTool(callCtx, name, normalized)
	elapsed := time.Since(t0).Milliseconds()
	metrics.ToolCallDuration.WithLabelValues(name, "mcp").Observe(time.Since(t0).Seconds())

	if err != nil {
		b.mu.Lock()
		b.failureCounts[sig]++
		b.mu.Unlock()
		metrics.ToolCallsTotal.WithLabelValues(name, "mcp", "error").Inc()

		msg := err.Error()
		if isValidationFailure(msg) {
			encodedOrig, _ := json.Marshal(args)
			encodedNorm, _ := json.Marshal(normalized)
			msg = fmt.Sprintf("%s (original args: %s, normalized args: %s)", msg, encodedOrig, encodedNorm)
			err = fmt.Errorf("%w: %s", ptcall.ErrMCPValidationFailure, msg)
		}

		b.appendRecord(ptcall.ToolCallRecord{
			ToolName:       name,
			Args:           recordArgs,
			NormalizedArgs: normalized,
			Error:          msg,
			IsMCP:          true,
			ElapsedMs:      elapsed,
		})
		if b.cfg.Logger != nil {
			b.cfg.Logger.Logf("mcpbridge: %s failed after %dms: %v", name, elapsed, err)
		}
		return nil, err
	}

	transformed := normalize.Response(raw)

	b.mu.Lock()
	b.failureCounts[sig] = 0
	b.learnOutputSchema(name, transformed)
	b.mu.Unlock()

	metrics.ToolCallsTotal.WithLabelValues(name, "mcp", "ok").Inc()
	b.appendRecord(ptcall.ToolCallRecord{
		ToolName:          name,
		Args:              recordArgs,
		NormalizedArgs:    normalized,
		RawResult:         raw,
		TransformedResult: transformed,
		IsMCP:             true,
		ElapsedMs:         elapsed,
	})

	return transformed, nil
}

func (b *Bridge) appendRecord(r ptcall.ToolCallRecord) {
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()
}

// argsForRecord converts a Handle argument value into the map shape
// ToolCallRecord.Args expects. args may not already be a map: the Parameter
// Normalizer's heuristic wrapping (normalize.Parameters) exists precisely
// because a generated script can call an MCP tool with a bare scalar or
// array, so the record still needs a best-effort map even before that
// wrapping happens.
func argsForRecord(args any) map[string]any {
	switch v := args.(type) {
	case map[string]any:
		return v
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"value": v}
	}
}

// signature computes the failure-signature key name<>JSON(normalized),
// falling back to name<>t0 when normalized cannot be serialized.
func (b *Bridge) signature(name string, normalized map[string]any, t0 time.Time) string {
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Sprintf("%s⊕%d", name, t0.UnixNano())
	}
	return fmt.Sprintf("%s⊕%s", name, encoded)
}

// learnOutputSchema updates the cached learned schema for name iff value's
// inferred shape is strictly more detailed than what's cached. Caller
// must hold b.mu.
func (b *Bridge) learnOutputSchema(name string, value any) {
	candidate := inferSchema(value, 0)
	if moreDetailed(b.learnedSchemas[name], candidate) {
		b.learnedSchemas[name] = candidate
	}
}

// LearnedSchemaFor returns the currently cached learned output schema for
// name, or nil if none has been observed.
func (b *Bridge) LearnedSchemaFor(name string) *LearnedSchema {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.learnedSchemas[name]
}

// FailureCount returns the current failure-signature counter used by the
// circuit breaker for (name, normalized). Exposed for tests and metrics.
func (b *Bridge) FailureCount(name string, normalized map[string]any) int {
	sig := b.signature(name, normalized, time.Time{})
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCounts[sig]
}

// Call is one request to ExecuteBatch.
type Call struct {
	Name string
	Args any
}

// BatchResult is one ExecuteBatch outcome, order-aligned with the input.
type BatchResult struct {
	Name string
	Data any
	Err  error
}

// ExecuteBatch dispatches calls concurrently, returning results in input
// order.
func (b *Bridge) ExecuteBatch(ctx context.Context, calls []Call) []BatchResult {
	results := make([]BatchResult, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		go func(i int, call Call) {
			defer wg.Done()
			data, err := b.Handle(ctx, call.Name, call.Args)
			results[i] = BatchResult{Name: call.Name, Data: data, Err: err}
		}(i, call)
	}
	wg.Wait()
	return results
}

// Records returns a snapshot of the tool-call records accumulated since
// construction or the last Reset.
func (b *Bridge) Records() []ptcall.ToolCallRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ptcall.ToolCallRecord(nil), b.records...)
}

// Reset clears records and failure counts between runs, but preserves
// learned output schemas across them.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
	b.failureCounts = make(map[string]int)
}

func isValidationFailure(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "invalid") || strings.Contains(lower, "validation")
}
