package toolcaller

import (
	"sort"
	"strings"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/coercion"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// codeExecutionDescription builds the code_execution tool's own
// description: the available tools (local and MCP, with MCP's single
// params-record calling convention called out), and the Value Coercion
// Library helpers available to the generated program.
func (c *Caller) codeExecutionDescription() string {
	var b strings.Builder
	b.WriteString("Execute JavaScript code that can call the available tools programmatically, ")
	b.WriteString("chaining and filtering their results before returning.\n\n")
	b.WriteString(c.GenerateToolDocumentation())

	mcpNames := toolNames(c.mcp)
	if len(mcpNames) > 0 {
		b.WriteString("MCP tools (")
		b.WriteString(strings.Join(mcpNames, ", "))
		b.WriteString(") take a single params record, e.g. `await ")
		b.WriteString(mcpNames[0])
		b.WriteString("({ ...params });` — never positional arguments.\n\n")
	}

	b.WriteString("Value Coercion Library helpers available in the sandbox: ")
	b.WriteString(strings.Join(coercion.HelperNames, ", "))
	b.WriteString(".")
	return b.String()
}

// GenerateToolDocumentation renders a single markdown-ish reference the
// generated program's author (the LLM) can be shown alongside the
// code_execution tool: one section per underlying tool, its description,
// and its callable signature (local tools take positional args; MCP tools
// take a single params record).
func (c *Caller) GenerateToolDocumentation() string {
	var b strings.Builder
	b.WriteString("Available tools (call from within code_execution):\n\n")

	names := c.AllToolNames()
	sort.Strings(names)
	for _, name := range names {
		tool, isMCP := c.lookup(name)
		writeToolDoc(&b, tool, isMCP)
	}
	return b.String()
}

func (c *Caller) lookup(name string) (ptcall.Tool, bool) {
	if t, ok := c.mcp[name]; ok {
		return t, true
	}
	return c.local[name], false
}

func writeToolDoc(b *strings.Builder, tool ptcall.Tool, isMCP bool) {
	b.WriteString("### ")
	b.WriteString(tool.Name)
	b.WriteString("\n")
	if tool.Description != "" {
		b.WriteString(tool.Description)
		b.WriteString("\n")
	}
	if isMCP {
		b.WriteString("Usage: `await " + tool.Name + "({ ...params });`\n\n")
	} else {
		b.WriteString("Usage: `await " + tool.Name + "(...args);`\n\n")
	}
	if tool.InputSchema == nil {
		return
	}
	props := propertyNames(tool.InputSchema.Properties)
	if len(props) == 0 {
		return
	}
	required := tool.InputSchema.RequiredSet()
	b.WriteString("Parameters:\n")
	for _, name := range props {
		prop := tool.InputSchema.Properties[name]
		typ := "any"
		if prop != nil && prop.Type != "" {
			typ = prop.Type
		}
		marker := ""
		if required[name] {
			marker = " (required)"
		}
		b.WriteString("- " + name + ": " + typ + marker + "\n")
	}
	b.WriteString("\n")
}

func propertyNames(props map[string]*schema.Schema) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
