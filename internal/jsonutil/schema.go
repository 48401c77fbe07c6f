package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// verdictSchema is the shape contract for serialized validation verdicts.
// The persistence layer stores validation_data opaquely, so this is the last
// gate that catches a malformed payload before it is committed.
var verdictSchema = map[string]any{
	"type":     "object",
	"required": []any{"valid", "message", "files_valid", "files_failed"},
	"properties": map[string]any{
		"valid":        map[string]any{"type": "boolean"},
		"message":      map[string]any{"type": "string"},
		"files_valid":  map[string]any{"type": "integer", "minimum": 0},
		"files_failed": map[string]any{"type": "integer", "minimum": 0},
		"errors":       map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
		"warnings":     map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
	},
}

// ValidateVerdictPayload validates serialized verdict JSON against the
// verdict schema.
func ValidateVerdictPayload(data []byte) error {
	return validateAgainst(verdictSchema, data)
}

func validateAgainst(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
