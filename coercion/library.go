// Package coercion holds the Value Coercion Library: source text inserted
// verbatim into every generated sandbox program so LLM-written code has a
// small set of helpers to defend against variable response shapes.
package coercion

// HelperNames lists the function names the Value Coercion Library defines,
// for surfacing in generated tool documentation without duplicating the
// list against librarySource.
var HelperNames = []string{
	"toSequence", "safeGet", "safeMap", "safeFilter", "first", "len",
	"isSuccess", "extractData", "extractText", "getCommandOutput",
}

// Source returns the Value Coercion Library as JavaScript source text,
// ready for verbatim inclusion in a generated program. It is pure data —
// a raw Go string constant, not a template, since there is nothing to
// interpolate here (per-tool stub
// names are interpolated later, by scriptgen, around this fixed block).
func Source() string {
	return librarySource
}

// librarySource implements the coercion library's required semantics:
//
//   - toSequence(v): null/undefined -> []; array -> v; record with a
//     sequence-valued items/data/results/content field -> that field;
//     otherwise singleton [v].
//   - safeGet(obj, path, fallback): "a.b.c" or a single key; traverses,
//     returning fallback on any null/undefined segment.
//   - safeMap/safeFilter/first/len: layered on toSequence.
//   - isSuccess(r): false if r is falsy, has success === false, error, or
//     isError; true otherwise.
//   - extractData(r): prefers r.data, then r.result/r.results/r.items,
//     then r.content (unless r.markdown is present), else r itself.
//   - extractText(r, fallback): prefers the first non-empty of
//     text/output/stdout/content/markdown/result/data/value, recursing
//     into items[0]; falls back to string serialization, then fallback.
//   - getCommandOutput(r): {success, output, error} derived from the above.
const librarySource = `
// --- Value Coercion Library (injected) ---
function toSequence(v) {
  if (v === null || v === undefined) return [];
  if (Array.isArray(v)) return v;
  if (typeof v === "object") {
    for (const key of ["items", "data", "results", "content"]) {
      if (Array.isArray(v[key])) return v[key];
    }
  }
  return [v];
}

function safeGet(obj, path, fallback) {
  if (obj === null || obj === undefined) return fallback;
  const segments = String(path).split(".");
  let cur = obj;
  for (const seg of segments) {
    if (cur === null || cur === undefined) return fallback;
    cur = cur[seg];
  }
  return cur === undefined ? fallback : cur;
}

function safeMap(v, fn) {
  return toSequence(v).map(fn);
}

function safeFilter(v, fn) {
  return toSequence(v).filter(fn);
}

function first(v) {
  const seq = toSequence(v);
  return seq.length > 0 ? seq[0] : undefined;
}

function len(v) {
  return toSequence(v).length;
}

function isSuccess(r) {
  if (!r) return false;
  if (r.success === false) return false;
  if (r.error) return false;
  if (r.isError) return false;
  return true;
}

function extractData(r) {
  if (r === null || r === undefined) return r;
  if (r.data !== undefined) return r.data;
  if (r.result !== undefined) return r.result;
  if (r.results !== undefined) return r.results;
  if (r.items !== undefined) return r.items;
  if (r.content !== undefined && r.markdown === undefined) return r.content;
  return r;
}

function extractText(r, fallback) {
  if (r === null || r === undefined) return fallback;
  if (typeof r === "string") return r.length > 0 ? r : fallback;
  for (const key of ["text", "output", "stdout", "content", "markdown", "result", "data", "value"]) {
    const v = r[key];
    if (typeof v === "string" && v.length > 0) return v;
  }
  const items = toSequence(r.items);
  if (items.length > 0) {
    const nested = extractText(items[0], undefined);
    if (nested !== undefined) return nested;
  }
  try {
    const serialized = JSON.stringify(r);
    if (serialized && serialized !== "{}" && serialized !== "null") return serialized;
  } catch (e) {
    // fall through to fallback
  }
  return fallback;
}

function getCommandOutput(r) {
  return {
    success: isSuccess(r),
    output: extractText(r, ""),
    error: (r && (r.error || r.stderr)) || "",
  };
}
// --- end Value Coercion Library ---
`
