// Package scriptgen implements the Execution Script Generator: it
// emits a self-contained JavaScript program that exposes a fixed tool set as
// callables to LLM-written code, each callable performing an RPC to the host
// over the file protocol described in workerrpc.
package scriptgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/coercion"
)

// Defaults for the stub's request/response poll interval (50ms), the
// timeout a stub waits before giving up (30s, the bridge's default call
// timeout), and the worker-side scratch directory.
const (
	DefaultStubPollIntervalMs = 50
	DefaultStubTimeoutMs      = 30_000
	DefaultScratchDir         = "/tmp"
)

// Options configures one Generate call.
type Options struct {
	// LocalTools are the names of tools that run in the host process.
	LocalTools []string

	// MCPTools are the names of externally-bridged MCP tools (must already
	// carry the "mcp_" prefix).
	MCPTools []string

	// Body is the LLM-supplied program text, wrapped in an async outer
	// function by the generator.
	Body string

	// ScratchDir is the worker-side directory RPC files are written to.
	// Defaults to "/tmp".
	ScratchDir string

	// StubPollInterval is how often a stub polls for its response file.
	// Defaults to 50ms.
	StubPollInterval time.Duration

	// StubTimeout bounds how long a single tool-call stub waits for a
	// response before throwing. Defaults to 30s (the bridge's default timeout).
	StubTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.ScratchDir == "" {
		o.ScratchDir = DefaultScratchDir
	}
	if o.StubPollInterval <= 0 {
		o.StubPollInterval = DefaultStubPollIntervalMs * time.Millisecond
	}
	if o.StubTimeout <= 0 {
		o.StubTimeout = DefaultStubTimeoutMs * time.Millisecond
	}
}

// Generate emits the full worker program for opts, in six steps:
// the Value Coercion Library verbatim, the two RPC stub families, one
// callable per tool name, the async outer-function wrapper, the
// synthesized-return-value fallback, and the success/failure output
// document shapes.
func Generate(opts Options) (string, error) {
	if err := ValidateSyntax(opts.Body); err != nil {
		return "", err
	}
	opts.applyDefaults()

	var b strings.Builder
	b.WriteString("'use strict';\n")
	b.WriteString("const fs = require('fs');\n")
	fmt.Fprintf(&b, "const SCRATCH = %q;\n", opts.ScratchDir)
	fmt.Fprintf(&b, "const OUTPUT_PATH = %q;\n", opts.ScratchDir+"/sandbox_output.json")
	fmt.Fprintf(&b, "const STUB_POLL_MS = %d;\n", opts.StubPollInterval.Milliseconds())
	fmt.Fprintf(&b, "const STUB_TIMEOUT_MS = %d;\n", opts.StubTimeout.Milliseconds())
	b.WriteString(coercion.Source())
	b.WriteString(runtimeHelpers)

	for _, name := range opts.LocalTools {
		writeLocalStub(&b, name)
	}
	for _, name := range opts.MCPTools {
		writeMCPStub(&b, name)
	}

	b.WriteString(outerWrapperPrelude)
	b.WriteString(opts.Body)
	b.WriteString(outerWrapperPostlude)

	return b.String(), nil
}

// runtimeHelpers defines __sleep, __genId, and the __allResults accumulator
// every generated program shares regardless of its tool set.
const runtimeHelpers = `
// --- RPC runtime helpers (injected) ---
const __allResults = {};
function __record(name, value) {
  if (!__allResults[name]) __allResults[name] = [];
  __allResults[name].push(value);
  return value;
}
function __sleep(ms) {
  return new Promise((resolve) => setTimeout(resolve, ms));
}
let __seq = 0;
function __genId() {
  __seq += 1;
  return Date.now().toString(36) + "_" + __seq.toString(36);
}
async function __waitForFile(path, timeoutMs, pollMs) {
  const deadline = Date.now() + timeoutMs;
  while (!fs.existsSync(path)) {
    if (Date.now() > deadline) return null;
    await __sleep(pollMs);
  }
  return path;
}
// --- end RPC runtime helpers ---
`

func writeLocalStub(b *strings.Builder, name string) {
	fmt.Fprintf(b, `
async function %s(...args) {
  const id = __genId();
  const reqPath = SCRATCH + "/tool_call_" + id + ".json";
  const respPath = SCRATCH + "/tool_result_" + id + ".json";
  fs.writeFileSync(reqPath, JSON.stringify({toolName: %q, args, callId: id, type: "local"}));
  const found = await __waitForFile(respPath, STUB_TIMEOUT_MS, STUB_POLL_MS);
  if (!found) {
    try { fs.unlinkSync(reqPath); } catch (e) {}
    throw new Error("timeout waiting for local tool " + JSON.stringify(%q));
  }
  const raw = fs.readFileSync(respPath, "utf8");
  try { fs.unlinkSync(reqPath); } catch (e) {}
  try { fs.unlinkSync(respPath); } catch (e) {}
  const resp = JSON.parse(raw);
  if (resp.error) throw new Error(resp.error);
  return __record(%q, resp.data);
}
`, name, name, name, name)
}

func writeMCPStub(b *strings.Builder, name string) {
	fmt.Fprintf(b, `
async function %s(params) {
  const id = __genId();
  const reqPath = SCRATCH + "/mcp_call_" + id + ".json";
  const respPath = SCRATCH + "/mcp_result_" + id + ".json";
  fs.writeFileSync(reqPath, JSON.stringify({toolName: %q, args: params || {}, callId: id, type: "mcp"}));
  const found = await __waitForFile(respPath, STUB_TIMEOUT_MS, STUB_POLL_MS);
  if (!found) {
    try { fs.unlinkSync(reqPath); } catch (e) {}
    throw new Error("timeout waiting for mcp tool " + JSON.stringify(%q));
  }
  const raw = fs.readFileSync(respPath, "utf8");
  try { fs.unlinkSync(reqPath); } catch (e) {}
  try { fs.unlinkSync(respPath); } catch (e) {}
  const resp = JSON.parse(raw);
  if (resp.error) throw new Error(resp.error);
  return __record(%q, resp.data);
}
`, name, name, name, name)
}

const outerWrapperPrelude = `
(async () => {
  async function __programBody() {
`

const outerWrapperPostlude = `
  }
  try {
    let __result = await __programBody();
    if (__result === undefined) {
      const __names = Object.keys(__allResults);
      const __flat = __names.reduce((acc, n) => acc.concat(__allResults[n]), []);
      if (__flat.length === 1) {
        __result = __flat[0];
      } else if (__flat.length > 1) {
        __result = {
          autoGenerated: true,
          count: __flat.length,
          results: __flat,
          lastResult: __flat[__flat.length - 1],
        };
      }
    }
    fs.writeFileSync(OUTPUT_PATH, JSON.stringify({success: true, result: __result}));
  } catch (__err) {
    const __names = Object.keys(__allResults);
    const __completed = __names.reduce((acc, n) => acc.concat(__allResults[n]), []);
    const __partial = __completed.length > 0
      ? {error: String((__err && __err.message) || __err), completedResults: __completed}
      : undefined;
    fs.writeFileSync(OUTPUT_PATH, JSON.stringify({
      success: false,
      error: String((__err && __err.message) || __err),
      stack: (__err && __err.stack) || "",
      partialResult: __partial,
    }));
  }
})();
`
