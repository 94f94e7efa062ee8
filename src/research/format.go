package research

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

// Fields lists the keys every result must carry, in presentation order.
var Fields = []string{"topic", "summary", "sources", "tools_used"}

var schemaOnce = sync.OnceValues(buildSchema)

// SchemaMap returns a fresh copy of the result schema as a generic map.
func SchemaMap() (map[string]any, error) {
	b, err := schemaOnce()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Schema returns the JSON schema results are validated against. Keys are
// sorted, so the output is byte-for-byte stable.
func Schema() ([]byte, error) {
	b, err := schemaOnce()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func buildSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	b, err := json.Marshal(reflector.Reflect(&Result{}))
	if err != nil {
		return nil, fmt.Errorf("marshal result schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode result schema: %w", err)
	}

	// Draft markers confuse older validators and add nothing for the model.
	delete(m, "$schema")
	delete(m, "$id")

	m["type"] = "object"
	m["additionalProperties"] = false
	required := make([]any, len(Fields))
	for i, f := range Fields {
		required[i] = f
	}
	m["required"] = required

	props, ok := m["properties"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("result schema has no properties")
	}
	if topic, ok := props["topic"].(map[string]any); ok {
		topic["minLength"] = 1
	}
	for _, key := range []string{"sources", "tools_used"} {
		if arr, ok := props[key].(map[string]any); ok {
			arr["type"] = "array"
			arr["items"] = map[string]any{"type": "string"}
		}
	}

	// encoding/json sorts map keys.
	return json.Marshal(m)
}

// FormatInstructions describes the required reply format. It is embedded in the
// system prompt and never changes between calls.
func FormatInstructions() string {
	schema, err := Schema()
	if err != nil {
		schema = []byte(fallbackSchema)
	}
	var b strings.Builder
	b.WriteString("The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n")
	b.WriteString("As an example, for the schema {\"properties\": {\"foo\": {\"type\": \"array\", \"items\": {\"type\": \"string\"}}}, \"required\": [\"foo\"]}\n")
	b.WriteString("the object {\"foo\": [\"bar\", \"baz\"]} is a well-formatted instance of the schema. ")
	b.WriteString("The object {\"properties\": {\"foo\": [\"bar\", \"baz\"]}} is not well-formatted.\n\n")
	b.WriteString("Here is the output schema:\n")
	b.Write(schema)
	b.WriteString("\n\nRequired fields: ")
	b.WriteString(strings.Join(Fields, ", "))
	b.WriteString(".\nReply with the JSON object only: no code fences, no leading or trailing text.")
	return b.String()
}

const fallbackSchema = `{"additionalProperties":false,"properties":{"sources":{"items":{"type":"string"},"type":"array"},"summary":{"type":"string"},"tools_used":{"items":{"type":"string"},"type":"array"},"topic":{"minLength":1,"type":"string"}},"required":["topic","summary","sources","tools_used"],"type":"object"}`
