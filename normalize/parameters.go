package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// lowerFold case-folds a tool name for heuristic matching, using
// golang.org/x/text/cases rather than strings.ToLower so the fold is
// locale-aware the way the rest of this module's text handling is.
var lowerFold = cases.Lower(language.Und)

// Result is the outcome of a Parameter Normalizer pass.
type Result struct {
	Normalized map[string]any
	Warnings   []string
	IsValid    bool
}

// Parameters coerces LLM-generated arguments toward name's declared input
// schema. It is idempotent: Parameters(name,
// Parameters(name, x, s).Normalized, s) == Parameters(name, x, s).
func Parameters(name string, args any, sch *schema.Schema) Result {
	folded := lowerFold.String(name)
	var warnings []string

	normalized, warnings := wrapToRecord(folded, args, warnings)
	normalized, warnings = deepClone(normalized, warnings)
	if sch != nil {
		normalized, warnings = coerceToSchema(normalized, sch, warnings)
	}

	isValid := true
	for _, w := range warnings {
		if strings.Contains(w, "missing required") {
			isValid = false
			break
		}
	}

	return Result{Normalized: normalized, Warnings: warnings, IsValid: isValid}
}

// wrapToRecord implements the first three normalization steps: null/undefined -> empty
// record; non-record primitive -> heuristic wrapping keyed on the tool
// name; array argument -> heuristic wrapping for arrays.
func wrapToRecord(foldedName string, args any, warnings []string) (map[string]any, []string) {
	if args == nil {
		return map[string]any{}, append(warnings, "arguments were null/undefined; substituted empty record")
	}

	if m, ok := args.(map[string]any); ok {
		return m, warnings
	}

	if arr, ok := args.([]any); ok {
		key := "items"
		if containsAny(foldedName, "extract", "batch") {
			key = "urls"
		}
		return map[string]any{key: arr}, append(warnings, "wrapped array as {"+key+": ...}")
	}

	var key string
	switch {
	case containsAny(foldedName, "scrape", "crawl"):
		key = "url"
	case containsAny(foldedName, "search"):
		key = "query"
	case containsAny(foldedName, "extract"):
		return map[string]any{"urls": []any{args}}, append(warnings, "wrapped scalar as {urls: [...]}")
	default:
		key = "input"
	}
	return map[string]any{key: args}, append(warnings, "Wrapped "+typeName(args)+" as { "+key+": ... }")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "value"
	}
}

// deepClone implements the fourth normalization step: deep-clone via round-trip
// serialization, warning if a value is unserializable. It takes only the JSON
// round-trip branch of the teacher's deepCopyArgs/deepCopyViaJSON pattern
// (code/tools.go); there is no structural-copy path. When the round trip
// fails it returns the original map with a warning rather than failing.
func deepClone(m map[string]any, warnings []string) (map[string]any, []string) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return m, append(warnings, "arguments could not be serialized for deep clone: "+err.Error())
	}
	var clone map[string]any
	if err := json.Unmarshal(encoded, &clone); err != nil {
		return m, append(warnings, "arguments could not be round-tripped for deep clone: "+err.Error())
	}
	return clone, warnings
}

// coerceToSchema implements the fifth normalization step: for each declared property,
// record "missing required" warnings, coerce scalars to the declared type,
// wrap scalars into singleton sequences for declared array properties, and
// for an array-of-object property whose observed items are scalars, wrap
// each scalar into a singleton record using the schema to pick the target
// key.
func coerceToSchema(m map[string]any, sch *schema.Schema, warnings []string) (map[string]any, []string) {
	if sch == nil || len(sch.Properties) == 0 {
		return m, warnings
	}

	propOrder := orderedKeys(sch.Properties)

	for _, name := range propOrder {
		prop := sch.Properties[name]
		val, present := m[name]
		if !present {
			if sch.IsRequired(name) {
				warnings = append(warnings, "missing required property: "+name)
			}
			continue
		}
		if prop == nil {
			continue
		}

		switch prop.Type {
		case "string":
			if s, ok := val.(string); !ok {
				m[name] = toStringValue(val)
				_ = s
			}
		case "number":
			if _, ok := val.(float64); !ok {
				if n, ok := toNumberValue(val); ok {
					m[name] = n
				}
			}
		case "boolean":
			if _, ok := val.(bool); !ok {
				m[name] = toBoolValue(val)
			}
		case "array":
			arr, isArray := val.([]any)
			if !isArray {
				arr = []any{val}
				warnings = append(warnings, "wrapped scalar property \""+name+"\" into a singleton array")
			}
			if prop.Items != nil && prop.Items.Type == "object" {
				for i, item := range arr {
					if _, ok := item.(map[string]any); ok {
						continue
					}
					key := pickWrapKey(prop.Items, propOrder)
					arr[i] = map[string]any{key: item}
					warnings = append(warnings, "wrapped scalar array item for \""+name+"\" as {"+key+": ...}")
				}
			}
			m[name] = arr
		}
	}

	return m, warnings
}

// pickWrapKey chooses the target key for wrapping a bare scalar array item
// into a record: prefer a required string property,
// else a property named type/value/url/name, else the first string
// property, else any property, else "value".
func pickWrapKey(itemSchema *schema.Schema, fallbackOrder []string) string {
	if itemSchema == nil {
		return "value"
	}
	order := orderedKeys(itemSchema.Properties)
	for _, name := range order {
		if itemSchema.IsRequired(name) {
			if prop := itemSchema.Properties[name]; prop != nil && prop.Type == "string" {
				return name
			}
		}
	}
	for _, candidate := range []string{"type", "value", "url", "name"} {
		if _, ok := itemSchema.Properties[candidate]; ok {
			return candidate
		}
	}
	if name, ok := itemSchema.FirstStringProperty(order); ok {
		return name
	}
	if len(order) > 0 {
		return order[0]
	}
	return "value"
}

func orderedKeys(m map[string]*schema.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable, deterministic order independent of map iteration, without
	// pulling in sort for a handful of schema properties per tool.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func toStringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return trimFloatString(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	}
}

// trimFloatString formats f without a trailing ".0" for whole numbers,
// matching how an LLM would typically write a numeric literal back out as a
// string (e.g. "42" rather than "42.000000").
func trimFloatString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toNumberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toBoolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}
