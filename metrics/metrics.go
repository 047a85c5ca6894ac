// Package metrics defines the Prometheus instrumentation shared across
// mcpbridge, sandbox, and toolcaller: tool-call outcomes and latency,
// circuit-breaker trips, worker provisioning latency, stale-session retries,
// code_execution duration, and estimated tokens saved.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// LatencyBuckets suits the sub-second-to-tens-of-seconds range a tool call,
// worker provisioning step, or code_execution run falls into.
var LatencyBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 60}

var (
	// ToolCallsTotal counts tool invocations by name, kind (local/mcp), and
	// outcome (ok/error).
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcall_tool_calls_total",
			Help: "Tool invocations by name, kind, and outcome",
		},
		[]string{"tool_name", "kind", "status"},
	)

	// ToolCallDuration records tool call latency in seconds by name and kind.
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ptcall_tool_call_duration_seconds",
			Help:    "Tool call latency",
			Buckets: LatencyBuckets,
		},
		[]string{"tool_name", "kind"},
	)

	// CircuitBreakerTripsTotal counts mcpbridge circuit-open short-circuits
	// by tool name.
	CircuitBreakerTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ptcall_circuit_breaker_trips_total",
			Help: "Circuit breaker short-circuits by tool name",
		},
		[]string{"tool_name"},
	)

	// WorkerProvisioningDuration records how long acquiring a sandbox
	// worker took, by provisioner Go type name (e.g.
	// "*sandbox.StaticProvisioner") and outcome.
	WorkerProvisioningDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ptcall_worker_provisioning_duration_seconds",
			Help:    "Worker provisioning latency",
			Buckets: LatencyBuckets,
		},
		[]string{"provisioner", "status"},
	)

	// WorkerStaleSessionRetriesTotal counts sandbox.Controller's
	// retry-once-on-stale-session recoveries.
	WorkerStaleSessionRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ptcall_worker_stale_session_retries_total",
			Help: "Stale-session worker retries",
		},
	)

	// CodeExecutionDuration records one code_execution run's wall-clock
	// time end to end, by outcome.
	CodeExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ptcall_code_execution_duration_seconds",
			Help:    "code_execution run duration",
			Buckets: LatencyBuckets,
		},
		[]string{"status"},
	)

	// TokensSavedTotal accumulates the Savings Accountant's total-saved
	// estimate across every completed code_execution run.
	TokensSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ptcall_tokens_saved_total",
			Help: "Estimated tokens saved by programmatic tool calling",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ToolCallsTotal,
		ToolCallDuration,
		CircuitBreakerTripsTotal,
		WorkerProvisioningDuration,
		WorkerStaleSessionRetriesTotal,
		CodeExecutionDuration,
		TokensSavedTotal,
	)
}
