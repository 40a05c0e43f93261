package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to the model as an output constraint and also use
// it locally to validate what came back.
func BuildInvoiceJSONSchema() map[string]any {
	productProps := map[string]any{
		"name":       map[string]any{"type": "string", "minLength": 1},
		"quantity":   map[string]any{"type": []string{"number", "null"}},
		"unitPrice":  map[string]any{"type": []string{"number", "null"}},
		"totalPrice": map[string]any{"type": []string{"number", "null"}},
		"barcode":    map[string]any{"type": []string{"string", "null"}},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"supplier":      map[string]any{"type": []string{"string", "null"}},
			"invoiceNumber": map[string]any{"type": []string{"string", "null"}},
			"invoiceDate":   map[string]any{"type": []string{"string", "null"}},
			"totalAmount":   map[string]any{"type": []string{"number", "null"}},
			"products": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           productProps,
					"required":             []string{"name"},
				},
			},
		},
		"required": []string{"products"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
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
