package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/workerrpc"
)

// LocalWorker is a WorkerEndpoint backed by the host's own filesystem and a
// local Node.js binary, useful for development and tests where no remote
// sandbox provider is configured.
type LocalWorker struct {
	dir     string
	nodeBin string
}

// NewLocalWorker creates a LocalWorker rooted at dir, creating it if
// necessary. nodeBin defaults to "node" if empty.
func NewLocalWorker(dir, nodeBin string) (*LocalWorker, error) {
	if nodeBin == "" {
		nodeBin = "node"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sandbox: creating scratch dir: %w", err)
	}
	return &LocalWorker{dir: dir, nodeBin: nodeBin}, nil
}

func (w *LocalWorker) ScratchDir() string { return w.dir }

func (w *LocalWorker) WriteFile(_ context.Context, path string, content []byte) error {
	return workerrpc.WriteFileAtomic(path, content)
}

func (w *LocalWorker) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (w *LocalWorker) ListFiles(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (w *LocalWorker) RemoveFile(_ context.Context, path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (w *LocalWorker) RunScript(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, w.nodeBin, filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// StaticProvisioner always returns the same pre-running WorkerEndpoint and
// never releases it, grounded on antwort's staticURLAcquirer used for local
// development against a fixed sandbox instance.
type StaticProvisioner struct {
	Worker WorkerEndpoint
}

// Provision returns the configured worker with a no-op release function.
func (p *StaticProvisioner) Provision(_ context.Context) (WorkerEndpoint, func(), error) {
	if p.Worker == nil {
		return nil, nil, fmt.Errorf("sandbox: StaticProvisioner has no worker configured")
	}
	return p.Worker, func() {}, nil
}

// NewLocalDevProvisioner is a convenience constructor wiring a LocalWorker
// under a fresh temp directory for tests and local iteration. The returned
// cleanup removes the scratch directory once the caller is done with it.
func NewLocalDevProvisioner(nodeBin string) (*StaticProvisioner, func(), error) {
	dir, err := os.MkdirTemp("", "ptcall-sandbox-*")
	if err != nil {
		return nil, nil, err
	}
	worker, err := NewLocalWorker(dir, nodeBin)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }
	return &StaticProvisioner{Worker: worker}, cleanup, nil
}
