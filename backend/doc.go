// Package backend provides the host-side surface a toolcaller.Caller draws
// its tool set from: a pluggable Backend interface, a Registry that owns
// backend lifecycle (register/start/stop), and an Aggregator that lists and
// dispatches across every registered backend at once.
//
// This is not itself part of the Programmatic Tool Calling algorithm — the
// Sandbox Controller and MCP Bridge never import it — it is the assembly
// step that happens before a Caller is constructed: gather every tool a
// program should be able to call, from wherever it lives, into the flat
// []ptcall.Tool a Caller's Config.Tools expects.
//
// # Backend
//
// A Backend is a named, enable-able source of ptcall.Tool values with
// Start/Stop lifecycle hooks. local.Backend (the backend/local package)
// wraps an in-process handler map; a Backend could equally wrap a remote
// MCP server behind an mcpclient.Client, gating the "mcp_" name prefix the
// rest of this module dispatches on.
//
// # Registry
//
// The Registry manages backend instances:
//
//	registry := backend.NewRegistry()
//	registry.Register(localBackend)
//	registry.StartAll(ctx)
//
//	tools, _ := registry.ListTools(ctx) // ready for toolcaller.Config.Tools
//
// # Aggregator
//
// The Aggregator combines multiple backends for namespaced listing and
// "backend:tool"-addressed execution, for callers that need to route a call
// back to the specific backend it came from rather than just assembling a
// flat tool set:
//
//	agg := backend.NewAggregator(registry)
//	tagged, _ := agg.ListAllTools(ctx) // []AggregatedTool, each tagged with its backend
//	result, _ := agg.Execute(ctx, "geo:get_weather", args)
package backend
