package toolcaller

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Degrade recursively normalizes value into JSON-serializable shapes,
// falling back gracefully wherever a value can't round-trip: it first tries
// a JSON marshal/unmarshal round-trip on the whole value, and only walks
// element-by-element (substituting a typed stub for whatever fails) when
// that round-trip itself fails. Grounded on the teacher's own
// deepCopyValue/deepCopyViaJSON fallback chain, generalized from "deep copy
// args" to "produce something JSON-safe to hand back to the LLM."
func Degrade(value any) any {
	if value == nil {
		return nil
	}
	if _, err := json.Marshal(value); err == nil {
		return value
	}
	return degradeValue(value)
}

func degradeValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = degradeValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = degradeValue(elem)
		}
		return out
	case string, bool, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		json.Number:
		return val
	default:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil
			}
			return degradeValue(rv.Elem().Interface())
		}
		if data, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(data, &out); err == nil {
				return out
			}
		}
		return unserializableStub(val)
	}
}

// unserializableStub packages a value that survived neither the whole-value
// nor the element-wise JSON round-trip into a small descriptive record
// instead of dropping it or panicking: the LLM loses the value itself but
// still learns its type and, for structs and maps, the key names it held,
// enough to know what was there without being able to read it.
func unserializableStub(v any) map[string]any {
	stub := map[string]any{
		"_unserializable": true,
		"type":            fmt.Sprintf("%T", v),
	}
	if keys := fieldNames(v); len(keys) > 0 {
		stub["keys"] = keys
	}
	return stub
}

// fieldNames returns v's exported struct field names, or its map's keys
// (stringified, sorted), or nil if v is neither.
func fieldNames(v any) []string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		t := rv.Type()
		names := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() {
				names = append(names, f.Name)
			}
		}
		return names
	case reflect.Map:
		keys := rv.MapKeys()
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			names = append(names, fmt.Sprintf("%v", k.Interface()))
		}
		sort.Strings(names)
		return names
	default:
		return nil
	}
}
