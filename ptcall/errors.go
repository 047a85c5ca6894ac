package ptcall

import (
	"errors"
	"strconv"
)

// Sentinel errors shared across the module. Concrete failures wrap one of
// these with fmt.Errorf("%w: ...", ...) so callers can match with errors.Is.
var (
	// ErrConfiguration indicates a required collaborator was not supplied.
	ErrConfiguration = errors.New("ptcall: invalid configuration")

	// ErrLimitExceeded indicates a resource limit (timeout, tool-call
	// count, chain-step count) was exceeded.
	ErrLimitExceeded = errors.New("ptcall: limit exceeded")

	// ErrCodeExecution is the umbrella sentinel for code_execution
	// failures that are not more specifically classified below.
	ErrCodeExecution = errors.New("ptcall: code execution failed")

	// ErrSyntaxInvalid indicates the LLM-supplied program failed
	// surface-level syntax validation before it was ever sent to a worker.
	ErrSyntaxInvalid = errors.New("ptcall: program syntax invalid")

	// ErrProvisioningFailed indicates the worker could not be created.
	ErrProvisioningFailed = errors.New("ptcall: worker provisioning failed")

	// ErrAuthRequired is a distinguished sub-kind of ErrProvisioningFailed
	// for authentication failures, which are terminal (no retry).
	ErrAuthRequired = errors.New("ptcall: worker authentication required")

	// ErrStaleSession indicates the worker endpoint reported gone/closed.
	ErrStaleSession = errors.New("ptcall: stale worker session")

	// ErrUnknownTool indicates a call named a tool absent from the registry.
	ErrUnknownTool = errors.New("ptcall: unknown tool")

	// ErrToolExecutionFailure indicates the underlying tool threw.
	ErrToolExecutionFailure = errors.New("ptcall: tool execution failed")

	// ErrMCPValidationFailure indicates an MCP tool rejected its arguments.
	ErrMCPValidationFailure = errors.New("ptcall: mcp argument validation failed")

	// ErrCircuitOpen indicates the circuit breaker short-circuited a call.
	ErrCircuitOpen = errors.New("ptcall: circuit open")

	// ErrExecutionTimeout indicates the outer execution guard fired.
	ErrExecutionTimeout = errors.New("ptcall: execution timeout")

	// ErrNoOutput indicates the worker did not produce an output document.
	ErrNoOutput = errors.New("ptcall: no output produced")

	// ErrMalformedOutput indicates the worker's output document was not
	// valid JSON matching the execution-output grammar.
	ErrMalformedOutput = errors.New("ptcall: malformed output")
)

// CodeError wraps an execution failure with optional source position
// information, matching the teacher's own error shape for code execution
// failures.
type CodeError struct {
	// Message is a human-readable description of the failure.
	Message string

	// Line and Column are 1-based source positions, when known. Zero means
	// unknown.
	Line, Column int

	// Err is the underlying sentinel or wrapped error.
	Err error
}

func (e *CodeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Line > 0 {
		msg = msg + " (line " + strconv.Itoa(e.Line) + ", col " + strconv.Itoa(e.Column) + ")"
	}
	return msg
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches the wrapped sentinel, so a CodeError
// participates in errors.Is chains the same way a plain wrapped error would.
func (e *CodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
