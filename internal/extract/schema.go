package extract

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// documentSchema derives the JSON schema for a record type and adds the
// doc_id property the extractor uses to target an existing record.
func documentSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal document schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("decode document schema: %v", err))
	}

	props, ok := m["properties"].(map[string]any)
	if !ok {
		props = make(map[string]any)
		m["properties"] = props
	}
	props["doc_id"] = map[string]any{
		"type":        "string",
		"description": "Identifier of the existing document this call revises. Omit when creating a new document.",
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}
