package toolcaller

import (
	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/schema"
)

// codeExecutionSchema declares the code_execution meta-tool's sole
// argument: a required "code" string.
func codeExecutionSchema() *schema.Schema {
	js := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"code"},
		Properties: map[string]*jsonschema.Schema{
			"code": {
				Type:        "string",
				Description: "JavaScript source to run in the sandbox.",
			},
		},
	}
	return schema.FromJSONSchema(js)
}
