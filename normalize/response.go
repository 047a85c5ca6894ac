// Package normalize implements the Response Normalizer and the
// Parameter Normalizer: flattening MCP response envelopes into a
// predictable shape, and coercing loosely-typed LLM-generated arguments
// toward a declared schema.
package normalize

import "encoding/json"

// mcpContentPart mirrors one element of an MCP envelope's content array:
// {type: "text", text: "..."} or {type: "image", ...}.
type mcpContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response flattens the MCP protocol envelope
// {content:[{type,text|...}], isError} into a flat record satisfying:
// result["items"] is a sequence, result["success"] is a bool, and
// result["_raw"] holds the original value. Idempotent: Response(Response(x))
// == Response(x), the normalizer's round-trip law.
func Response(raw any) map[string]any {
	if env, ok := asEnvelope(raw); ok {
		return normalizeEnvelope(env, raw)
	}
	return normalizeStructure(raw)
}

// envelope is the decoded shape of an MCP response.
type envelope struct {
	Content []mcpContentPart
	IsError bool
}

// asEnvelope reports whether raw looks like an MCP envelope (has a
// "content" array, or an "isError" flag) and decodes it if so. A plain
// already-normalized map (one that already carries "_raw") is never
// re-interpreted as an envelope, which is what makes Response idempotent.
func asEnvelope(raw any) (envelope, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return envelope{}, false
	}
	if _, already := m["_raw"]; already {
		return envelope{}, false
	}
	contentRaw, hasContent := m["content"]
	_, hasIsError := m["isError"]
	if !hasContent && !hasIsError {
		return envelope{}, false
	}
	env := envelope{}
	if b, ok := m["isError"].(bool); ok {
		env.IsError = b
	}
	items, _ := contentRaw.([]any)
	for _, it := range items {
		part, ok := it.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := part["type"].(string)
		text, _ := part["text"].(string)
		env.Content = append(env.Content, mcpContentPart{Type: typ, Text: text})
	}
	return env, true
}

func normalizeEnvelope(env envelope, raw any) map[string]any {
	textParts := make([]string, 0, len(env.Content))
	for _, part := range env.Content {
		if part.Type == "text" {
			textParts = append(textParts, part.Text)
		}
	}

	if env.IsError {
		return withItems(map[string]any{
			"success": false,
			"error":   joinLines(textParts),
			"_raw":    raw,
		})
	}

	if len(textParts) == 0 {
		return withItems(map[string]any{
			"success": true,
			"content": contentOf(raw),
			"_raw":    raw,
		})
	}

	if len(textParts) == 1 {
		if parsed, ok := tryParseJSONObject(textParts[0]); ok {
			if _, has := parsed["success"]; !has {
				parsed["success"] = true
			}
			parsed["_raw"] = raw
			return withItems(parsed)
		}
		return withItems(map[string]any{
			"success": true,
			"text":    textParts[0],
			"_raw":    raw,
		})
	}

	results := make([]any, 0, len(textParts))
	for _, t := range textParts {
		if parsed, ok := tryParseJSONObject(t); ok {
			results = append(results, parsed)
		} else {
			results = append(results, t)
		}
	}
	return withItems(map[string]any{
		"success": true,
		"results": results,
		"_raw":    raw,
	})
}

// normalizeStructure handles inputs that are not in MCP envelope form:
// attach success from (success !== false && !error && !isError), alias
// items/data/first/last/length from the most-informative container field,
// textual aliases, and surface a top-level error.
func normalizeStructure(raw any) map[string]any {
	m, ok := raw.(map[string]any)
	if !ok {
		return withItems(map[string]any{
			"success": true,
			"value":   raw,
			"_raw":    raw,
		})
	}
	if _, already := m["_raw"]; already && hasItemsKey(m) {
		// Already normalized; return as-is for idempotency.
		return m
	}

	out := make(map[string]any, len(m)+4)
	for k, v := range m {
		out[k] = v
	}

	success := true
	if v, ok := m["success"].(bool); ok && !v {
		success = false
	}
	if _, hasErr := m["error"]; hasErr {
		success = false
	}
	if v, ok := m["isError"].(bool); ok && v {
		success = false
	}
	out["success"] = success
	out["_raw"] = raw

	for _, textKey := range []string{"text", "output", "stdout", "content", "value"} {
		if _, has := out[textKey]; has {
			continue
		}
		if v, ok := m["markdown"].(string); ok && textKey == "content" {
			out[textKey] = v
		}
	}

	return withItems(out)
}

// withItems ensures result["items"] is always a sequence, sourced from the
// most-informative container field present (items, data, results, content),
// falling back to an empty slice.
func withItems(m map[string]any) map[string]any {
	if arr, ok := m["items"].([]any); ok {
		if len(arr) > 0 {
			m["first"] = arr[0]
			m["last"] = arr[len(arr)-1]
		}
		m["length"] = len(arr)
		return m
	}
	for _, key := range []string{"items", "data", "results", "content"} {
		if arr, ok := m[key].([]any); ok {
			m["items"] = arr
			if len(arr) > 0 {
				m["first"] = arr[0]
				m["last"] = arr[len(arr)-1]
			}
			m["length"] = len(arr)
			return m
		}
	}
	m["items"] = []any{}
	m["length"] = 0
	return m
}

func hasItemsKey(m map[string]any) bool {
	_, ok := m["items"]
	return ok
}

func contentOf(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		return m["content"]
	}
	return nil
}

func joinLines(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

func tryParseJSONObject(text string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	return m, true
}
