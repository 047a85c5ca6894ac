// Package schema provides the declared-input-schema representation used by
// the Parameter Normalizer (schema-driven coercion) and by the Programmatic
// Tool Caller's documentation generator.
//
// It wraps github.com/google/jsonschema-go's Schema type rather than
// reinventing a JSON-Schema subset, since that library already ships as an
// indirect dependency of the teacher repo this module is grounded on.
package schema

import (
	jsonschema "github.com/google/jsonschema-go/jsonschema"
)

// Schema declares one tool's expected arguments: a mapping from property
// name to {type, required, items, nested properties}.
type Schema struct {
	// Raw is the underlying jsonschema-go representation. Properties, Type,
	// Items, and Required below are derived from Raw by FromJSONSchema so
	// that normalize.Parameters doesn't need to reach into jsonschema-go
	// internals for the common, shallow case the coercion rules operate
	// on.
	Raw *jsonschema.Schema

	// Properties maps a declared property name to its own declared shape.
	Properties map[string]*Schema

	// Type is the JSON-Schema type tag ("string", "number", "boolean",
	// "array", "object"), or empty if unconstrained.
	Type string

	// Items declares the element schema for a Type == "array" property.
	Items *Schema

	// Required lists property names that must be present for a record to
	// be considered valid.
	Required []string
}

// FromJSONSchema converts a github.com/google/jsonschema-go Schema into
// this package's shallow, coercion-friendly Schema.
func FromJSONSchema(js *jsonschema.Schema) *Schema {
	if js == nil {
		return nil
	}
	s := &Schema{
		Raw:      js,
		Type:     schemaTypeOf(js),
		Required: append([]string(nil), js.Required...),
	}
	if len(js.Properties) > 0 {
		s.Properties = make(map[string]*Schema, len(js.Properties))
		for name, prop := range js.Properties {
			s.Properties[name] = FromJSONSchema(prop)
		}
	}
	if js.Items != nil {
		s.Items = FromJSONSchema(js.Items)
	}
	return s
}

func schemaTypeOf(js *jsonschema.Schema) string {
	if js == nil {
		return ""
	}
	if js.Type != "" {
		return js.Type
	}
	if len(js.Types) > 0 {
		return js.Types[0]
	}
	return ""
}

// RequiredSet returns Required as a lookup set.
func (s *Schema) RequiredSet() map[string]bool {
	if s == nil {
		return nil
	}
	set := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		set[name] = true
	}
	return set
}

// IsRequired reports whether name is a required property of s.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// FirstStringProperty returns the first name in order that is a declared
// property of type "string". Properties not listed in order are not
// considered, so a nil order reports false. Used by the Parameter
// Normalizer's singleton-wrapping fallback chain (4.C, step 5).
func (s *Schema) FirstStringProperty(order []string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, name := range order {
		if prop, ok := s.Properties[name]; ok && prop != nil && prop.Type == "string" {
			return name, true
		}
	}
	return "", false
}
