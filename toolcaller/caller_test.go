package toolcaller

import (
	"context"
	"errors"
	"strings"
	"testing"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/sandbox"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

type fakeRouter struct {
	fn func(ctx context.Context, name string, args map[string]any) (any, error)
}

func (r *fakeRouter) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if r.fn != nil {
		return r.fn(ctx, name, args)
	}
	return map[string]any{"ok": true}, nil
}

func testTools() []ptcall.Tool {
	return []ptcall.Tool{
		{
			Name:        "add",
			Description: "adds two numbers",
			InputSchema: schema.FromJSONSchema(&jsonschema.Schema{
				Type:     "object",
				Required: []string{"a", "b"},
				Properties: map[string]*jsonschema.Schema{
					"a": {Type: "number"},
					"b": {Type: "number"},
				},
			}),
			Execute: func(_ context.Context, args map[string]any) (any, error) {
				return args, nil
			},
		},
		{Name: "mcp_search", Description: "search the web"},
	}
}

func newTestCaller(t *testing.T) *Caller {
	t.Helper()
	worker, cleanup, err := sandbox.NewLocalDevProvisioner("node")
	if err != nil {
		t.Fatalf("NewLocalDevProvisioner() error = %v", err)
	}
	t.Cleanup(cleanup)

	c, err := New(Config{
		Tools:  testTools(),
		Router: &fakeRouter{},
		SandboxConfig: sandbox.Config{
			Provisioner: worker,
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewSplitsLocalAndMCPTools(t *testing.T) {
	c := newTestCaller(t)
	if _, ok := c.local["add"]; !ok {
		t.Error("expected add in local tools")
	}
	if _, ok := c.mcp["mcp_search"]; !ok {
		t.Error("expected mcp_search in mcp tools")
	}
}

func TestNewRequiresRouterWhenMCPToolsPresent(t *testing.T) {
	worker, cleanup, err := sandbox.NewLocalDevProvisioner("node")
	if err != nil {
		t.Fatalf("NewLocalDevProvisioner() error = %v", err)
	}
	defer cleanup()

	_, err = New(Config{
		Tools:         testTools(),
		SandboxConfig: sandbox.Config{Provisioner: worker},
	})
	if !errors.Is(err, ptcall.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestAllToolNamesSorted(t *testing.T) {
	c := newTestCaller(t)
	names := c.AllToolNames()
	if len(names) != 2 || names[0] != "add" || names[1] != "mcp_search" {
		t.Fatalf("AllToolNames() = %v, want [add mcp_search]", names)
	}
}

func TestCreateCodeExecutionToolSchemaRequiresCode(t *testing.T) {
	c := newTestCaller(t)
	tool := c.CreateCodeExecutionTool()
	if tool.Name != CodeExecutionToolName {
		t.Fatalf("tool.Name = %q, want %q", tool.Name, CodeExecutionToolName)
	}
	if !tool.InputSchema.IsRequired("code") {
		t.Fatal("code_execution input schema does not mark \"code\" as required")
	}
	_, err := tool.Execute(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("expected an error when code is missing")
	}
}

func TestCreateEnhancedToolSetUnionsUnderlyingToolsWithCodeExecution(t *testing.T) {
	c := newTestCaller(t)
	set := c.CreateEnhancedToolSet()

	names := make(map[string]bool, len(set))
	for _, tool := range set {
		names[tool.Name] = true
	}
	for _, want := range append(c.AllToolNames(), CodeExecutionToolName) {
		if !names[want] {
			t.Fatalf("CreateEnhancedToolSet() = %+v, missing %q", set, want)
		}
	}
	if len(set) != len(c.AllToolNames())+1 {
		t.Fatalf("CreateEnhancedToolSet() has %d tools, want the original tools plus exactly one code_execution", len(set))
	}
}

func TestGenerateToolDocumentationListsAllTools(t *testing.T) {
	c := newTestCaller(t)
	doc := c.GenerateToolDocumentation()
	if !strings.Contains(doc, "add") || !strings.Contains(doc, "mcp_search") {
		t.Fatalf("GenerateToolDocumentation() = %q, want mentions of both tools", doc)
	}
	if !strings.Contains(doc, "a: number (required)") {
		t.Fatalf("GenerateToolDocumentation() = %q, want required parameter listing", doc)
	}
}

func TestNewNoMCPToolsStillConstructsUsableBridge(t *testing.T) {
	worker, cleanup, err := sandbox.NewLocalDevProvisioner("node")
	if err != nil {
		t.Fatalf("NewLocalDevProvisioner() error = %v", err)
	}
	defer cleanup()

	c, err := New(Config{
		Tools:         []ptcall.Tool{testTools()[0]},
		SandboxConfig: sandbox.Config{Provisioner: worker},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(c.mcp) != 0 {
		t.Fatalf("expected no mcp tools, got %v", c.mcp)
	}
}
