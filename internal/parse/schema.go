package parse

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// outputSchema validates the shape of the model's JSON before field-level
// normalization. Amounts are accepted as numbers or strings because models
// return both; NormalizeAmount settles the value afterwards.
const outputSchema = `{
  "type": "object",
  "required": ["line_items", "subtotal", "vat_total", "total"],
  "properties": {
    "detected_type": {"type": ["string", "null"]},
    "series": {"type": ["string", "null"]},
    "date": {"type": ["string", "null"]},
    "payment_method": {"type": ["string", "null"]},
    "currency": {"type": ["string", "null"]},
    "seller_name": {"type": ["string", "null"]},
    "seller_tax_code": {"type": ["string", "null"]},
    "seller_address": {"type": ["string", "null"]},
    "buyer_name": {"type": ["string", "null"]},
    "buyer_tax_code": {"type": ["string", "null"]},
    "buyer_address": {"type": ["string", "null"]},
    "line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "amount"],
        "properties": {
          "line_number": {"type": ["integer", "number", "string", "null"]},
          "description": {"type": ["string", "null"]},
          "unit": {"type": ["string", "null"]},
          "quantity": {"type": ["number", "string", "null"]},
          "unit_price": {"type": ["number", "string", "null"]},
          "amount": {"type": ["number", "string", "null"]},
          "vat_rate": {"type": ["string", "number", "null"]},
          "vat_amount": {"type": ["number", "string", "null"]}
        }
      }
    },
    "subtotal": {"type": ["number", "string", "null"]},
    "vat_total": {"type": ["number", "string", "null"]},
    "total": {"type": ["number", "string", "null"]},
    "total_in_words": {"type": ["string", "null"]}
  }
}`

var compiledSchema = jsonschema.MustCompileString("invoice-output.json", outputSchema)

// validateShape checks the decoded model output against the schema.
func validateShape(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal output: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	return nil
}
