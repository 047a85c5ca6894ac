// Package mcpclient wraps a single Model-Context-Protocol server connection:
// handshake, tool discovery, and tool invocation, translated into the
// ptcall.Tool/normalize vocabulary the rest of this module speaks.
package mcpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	gosdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/normalize"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// AuthConfig configures how a Client authenticates to its MCP server.
type AuthConfig struct {
	// Type selects the auth mechanism. "" means no auth beyond static
	// headers; "oauth_client_credentials" performs an OAuth 2.0
	// client_credentials grant via golang.org/x/oauth2/clientcredentials.
	Type string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// ServerConfig describes one MCP server connection.
type ServerConfig struct {
	Name      string
	URL       string
	Transport string // "sse", "streamable-http" (default), or "" (default)
	Headers   map[string]string
	Auth      AuthConfig
}

// Client wraps one MCP server connection and its discovered tool set.
type Client struct {
	cfg     ServerConfig
	client  *gosdkmcp.Client
	session *gosdkmcp.ClientSession

	mu          sync.Mutex
	cachedTools []ptcall.Tool
	resolved    bool
}

// New constructs a Client for cfg. Call Connect before using it.
func New(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect performs the MCP handshake using a transport derived from cfg.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport performs the MCP handshake over transport, or a
// transport derived from cfg if transport is nil. Accepting an explicit
// transport keeps this type testable against an in-process MCP server.
func (c *Client) ConnectWithTransport(ctx context.Context, transport gosdkmcp.Transport) error {
	c.client = gosdkmcp.NewClient(
		&gosdkmcp.Implementation{Name: "programmatic-tool-calling-ai-sdk", Version: "1.0.0"},
		&gosdkmcp.ClientOptions{Capabilities: &gosdkmcp.ClientCapabilities{}},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("mcpclient: transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("%w: connecting to %q: %v", ptcall.ErrAuthRequired, c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (gosdkmcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		t := &gosdkmcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil
	case "streamable-http", "":
		t := &gosdkmcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported MCP transport %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an *http.Client carrying static headers and, if
// configured, an OAuth2 client-credentials token source. The token
// source's own caching and refresh (golang.org/x/oauth2) replaces the
// hand-rolled 80%-lifetime refresh loop this pattern is grounded on.
func (c *Client) buildHTTPClient() *http.Client {
	var base *http.Client
	if c.cfg.Auth.Type == "oauth_client_credentials" {
		ccCfg := &clientcredentials.Config{
			ClientID:     c.cfg.Auth.ClientID,
			ClientSecret: c.cfg.Auth.ClientSecret,
			TokenURL:     c.cfg.Auth.TokenURL,
			Scopes:       c.cfg.Auth.Scopes,
		}
		base = ccCfg.Client(context.Background())
	}

	if len(c.cfg.Headers) == 0 && base == nil {
		return nil
	}
	if base == nil {
		base = &http.Client{}
	}
	base.Transport = &headerTransport{base: roundTripperOf(base), headers: c.cfg.Headers}
	return base
}

func roundTripperOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// DiscoverTools lists and caches the server's advertised tools, converted
// to ptcall.Tool with Execute wired back to this client's CallTool.
func (c *Client) DiscoverTools(ctx context.Context) ([]ptcall.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.cachedTools, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("mcpclient: %q not connected", c.cfg.Name)
	}

	var out []ptcall.Tool
	for t, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcpclient: listing tools from %q: %w", c.cfg.Name, err)
		}
		tool, convErr := c.convertTool(t)
		if convErr != nil {
			return nil, fmt.Errorf("mcpclient: converting tool %q: %w", t.Name, convErr)
		}
		out = append(out, tool)
	}

	c.cachedTools = out
	c.resolved = true
	return out, nil
}

func (c *Client) convertTool(t *gosdkmcp.Tool) (ptcall.Tool, error) {
	sch := schema.FromJSONSchema(t.InputSchema)
	name := t.Name
	return ptcall.Tool{
		Name:        name,
		Description: t.Description,
		InputSchema: sch,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return c.CallTool(ctx, name, args)
		},
	}, nil
}

// CallTool invokes name on the MCP server and returns the flattened
// envelope (normalize.Response), so callers never see the raw MCP
// content-array shape. Transport-level failures are returned as errors;
// tool-level failures (isError) are folded into the flattened result's
// success field instead, matching MCP convention.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if c.session == nil {
		return nil, fmt.Errorf("mcpclient: %q not connected", c.cfg.Name)
	}

	result, err := c.session.CallTool(ctx, &gosdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ptcall.ErrToolExecutionFailure, name, err)
	}

	return normalize.Response(envelopeOf(result)), nil
}

// envelopeOf converts a decoded MCP CallToolResult into the untyped
// {content, isError} envelope shape normalize.Response expects, extracting
// only the text content parts this module's tool contracts rely on.
func envelopeOf(result *gosdkmcp.CallToolResult) map[string]any {
	var content []any
	for _, part := range result.Content {
		if tc, ok := part.(*gosdkmcp.TextContent); ok {
			content = append(content, map[string]any{"type": "text", "text": tc.Text})
		}
	}
	return map[string]any{"isError": result.IsError, "content": content}
}

// Close closes the underlying MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// Name returns the configured server name, used to label errors and
// registered tool namespaces.
func (c *Client) Name() string {
	return c.cfg.Name
}
