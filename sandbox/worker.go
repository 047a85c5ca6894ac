// Package sandbox implements the Sandbox Controller: it owns
// the singleton remote worker, writes the generated program to it, runs an
// RPC monitor that services tool-call request files, and collects the
// worker's output alongside every tool-call record observed.
package sandbox

import "context"

// WorkerEndpoint is the execution surface a provisioned worker exposes: a
// writable scratch directory reachable by both worker and host, and a
// runtime able to execute the generated program. Because a real worker is
// a remote sandbox, the shared filesystem is modeled as a small file API
// rather than local disk access.
type WorkerEndpoint interface {
	// ScratchDir returns the worker-side directory RPC and script files
	// live under (typically "/tmp").
	ScratchDir() string

	// WriteFile writes content to path inside the worker's filesystem.
	WriteFile(ctx context.Context, path string, content []byte) error

	// ReadFile reads the content of path from the worker's filesystem.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// ListFiles lists file names (not full paths) directly inside dir.
	ListFiles(ctx context.Context, dir string) ([]string, error)

	// RemoveFile deletes path, best-effort; implementations should not
	// treat "already gone" as an error.
	RemoveFile(ctx context.Context, path string) error

	// RunScript executes the program at path to completion (or ctx
	// cancellation) and returns its captured stderr for diagnostics.
	// It corresponds to the consumed runCommand({cmd, args}) surface.
	RunScript(ctx context.Context, path string) (stderr string, err error)
}

// WorkerProvisioner acquires a WorkerEndpoint, returning it alongside a
// release function the caller must invoke once done with it. Grounded on
// antwort's SandboxAcquirer.Acquire(ctx) (string, func(), error), widened
// to return a full WorkerEndpoint instead of a bare URL.
type WorkerProvisioner interface {
	Provision(ctx context.Context) (WorkerEndpoint, func(), error)
}
