package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

// KubernetesConfig configures a KubernetesProvisioner.
type KubernetesConfig struct {
	// Client is a controller-runtime client with the agent-sandbox types
	// registered (see NewKubernetesScheme).
	Client client.Client

	// Template names the SandboxTemplate the SandboxClaim references.
	Template string

	// Namespace is the namespace SandboxClaims are created in.
	Namespace string

	// ReadyTimeout bounds how long to wait for the claimed Sandbox to
	// report Ready.
	ReadyTimeout time.Duration

	// HTTPClient is used to reach the claimed Sandbox's file-and-run
	// surface. Defaults to a client with a 120s timeout.
	HTTPClient *http.Client
}

func (c *KubernetesConfig) applyDefaults() {
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 60 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
}

// KubernetesProvisioner acquires a worker by creating a SandboxClaim CRD and
// waiting for the backing Sandbox to become ready, mirroring antwort's
// ClaimAcquirer. The returned WorkerEndpoint speaks a small HTTP file API
// against the claimed Sandbox's service, in the request/response idiom of
// antwort's SandboxClient.
type KubernetesProvisioner struct {
	cfg KubernetesConfig
}

// NewKubernetesProvisioner constructs a KubernetesProvisioner.
func NewKubernetesProvisioner(cfg KubernetesConfig) *KubernetesProvisioner {
	cfg.applyDefaults()
	return &KubernetesProvisioner{cfg: cfg}
}

// NewKubernetesScheme returns a runtime.Scheme with the agent-sandbox CRD
// types registered, required before constructing a controller-runtime
// client usable with KubernetesConfig.Client.
func NewKubernetesScheme() (*k8sruntime.Scheme, error) {
	scheme := k8sruntime.NewScheme()
	if err := sandboxv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("sandbox: register sandbox types: %w", err)
	}
	if err := extensionsv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("sandbox: register extensions types: %w", err)
	}
	return scheme, nil
}

// Provision creates a SandboxClaim, waits for its Sandbox to become ready,
// and returns an httpWorker pointed at it. The release function
// deletes the claim.
func (p *KubernetesProvisioner) Provision(ctx context.Context) (WorkerEndpoint, func(), error) {
	claimName := generateClaimName()

	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      claimName,
			Namespace: p.cfg.Namespace,
		},
		Spec: extensionsv1alpha1.SandboxClaimSpec{
			TemplateRef: extensionsv1alpha1.SandboxTemplateRef{Name: p.cfg.Template},
		},
	}

	if err := p.cfg.Client.Create(ctx, claim); err != nil {
		return nil, nil, classifyProvisioningError(fmt.Sprintf("create SandboxClaim %q", claimName), err)
	}
	slog.Debug("sandbox: created SandboxClaim", "name", claimName, "namespace", p.cfg.Namespace)

	fqdn, err := p.waitForReady(ctx, claimName)
	if err != nil {
		p.deleteClaim(context.Background(), claimName)
		return nil, nil, classifyProvisioningError(fmt.Sprintf("wait for Sandbox %q ready", claimName), err)
	}

	baseURL := fmt.Sprintf("http://%s:8080", fqdn)
	worker := newHTTPWorker(baseURL, p.cfg.HTTPClient)

	release := func() { p.deleteClaim(context.Background(), claimName) }
	slog.Debug("sandbox: acquired", "name", claimName, "url", baseURL)
	return worker, release, nil
}

func (p *KubernetesProvisioner) waitForReady(ctx context.Context, name string) (string, error) {
	deadline := time.After(p.cfg.ReadyTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-deadline:
			return "", fmt.Errorf("timeout (waited %s)", p.cfg.ReadyTimeout)
		case <-ticker.C:
			sb := &sandboxv1alpha1.Sandbox{}
			key := types.NamespacedName{Name: name, Namespace: p.cfg.Namespace}
			if err := p.cfg.Client.Get(ctx, key, sb); err != nil {
				continue
			}
			if isSandboxReady(sb) && sb.Status.ServiceFQDN != "" {
				return sb.Status.ServiceFQDN, nil
			}
		}
	}
}

func isSandboxReady(sb *sandboxv1alpha1.Sandbox) bool {
	for _, c := range sb.Status.Conditions {
		if c.Type == string(sandboxv1alpha1.SandboxConditionReady) && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

func (p *KubernetesProvisioner) deleteClaim(ctx context.Context, name string) {
	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: p.cfg.Namespace},
	}
	if err := p.cfg.Client.Delete(ctx, claim); err != nil {
		slog.Warn("sandbox: failed to delete SandboxClaim", "name", name, "error", err.Error())
		return
	}
	slog.Debug("sandbox: deleted SandboxClaim", "name", name)
}

// classifyProvisioningError distinguishes an unauthorized/forbidden Kubernetes
// API response from every other provisioning failure. Auth failures are
// terminal (retrying the claim won't fix an expired credential or missing
// RBAC grant), so they surface as ptcall.ErrAuthRequired rather than the
// generic ptcall.ErrProvisioningFailed, matching the sub-kind mcpclient.Client
// already reports for MCP connection auth failures.
func classifyProvisioningError(action string, err error) error {
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return fmt.Errorf("%w: %s: %v", ptcall.ErrAuthRequired, action, err)
	}
	return fmt.Errorf("sandbox: %s: %w", action, err)
}

// generateClaimName is a var so tests can substitute deterministic names.
var generateClaimName = func() string {
	return fmt.Sprintf("ptcall-sandbox-%d", time.Now().UnixNano())
}

// httpWorker is a WorkerEndpoint that speaks a small REST file API against a
// remote sandbox, in the request/response idiom of antwort's SandboxClient
// (marshal JSON, POST, surface non-2xx as an error carrying the body).
type httpWorker struct {
	baseURL string
	client  *http.Client
}

func newHTTPWorker(baseURL string, c *http.Client) *httpWorker {
	return &httpWorker{baseURL: baseURL, client: c}
}

func (w *httpWorker) ScratchDir() string { return "/tmp" }

func (w *httpWorker) WriteFile(ctx context.Context, path string, content []byte) error {
	_, err := w.do(ctx, http.MethodPut, "/files?path="+url.QueryEscape(path), content)
	return err
}

func (w *httpWorker) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return w.do(ctx, http.MethodGet, "/files?path="+url.QueryEscape(path), nil)
}

func (w *httpWorker) ListFiles(ctx context.Context, dir string) ([]string, error) {
	raw, err := w.do(ctx, http.MethodGet, "/files/list?dir="+url.QueryEscape(dir), nil)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("sandbox: decode file list: %w", err)
	}
	return names, nil
}

func (w *httpWorker) RemoveFile(ctx context.Context, path string) error {
	_, err := w.do(ctx, http.MethodDelete, "/files?path="+url.QueryEscape(path), nil)
	return err
}

func (w *httpWorker) RunScript(ctx context.Context, path string) (string, error) {
	body, _ := json.Marshal(map[string]string{"path": path})
	raw, err := w.do(ctx, http.MethodPost, "/run", body)
	if err != nil {
		return "", err
	}
	var result struct {
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exitCode"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("sandbox: decode run result: %w", err)
	}
	if result.ExitCode != 0 {
		return result.Stderr, fmt.Errorf("sandbox: script exited %d", result.ExitCode)
	}
	return result.Stderr, nil
}

func (w *httpWorker) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sandbox: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sandbox: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sandbox: %s %s returned HTTP %d: %s", method, path, resp.StatusCode, respBody)
	}
	return respBody, nil
}
