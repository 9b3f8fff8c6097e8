package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// orderSchemaSrc validates the raw order envelope before any simulation
// logic sees it. Capability gating happens later, in the turn queue, once
// the envelope has passed structural validation.
const orderSchemaSrc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "protocol_version", "faction_id", "tick", "directives"],
  "properties": {
    "type": {"const": "ORDER"},
    "protocol_version": {"type": "string"},
    "faction_id": {"type": "string", "minLength": 1},
    "tick": {"type": "integer", "minimum": 0},
    "directives": {
      "type": "array",
      "maxItems": 64,
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "target": {"type": "string"},
          "weight": {"type": "integer", "minimum": 0, "maximum": 1000},
          "amount": {"type": "integer", "minimum": 0}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var orderSchema = jsonschema.MustCompileString("order.schema.json", orderSchemaSrc)

// ValidateOrder checks a raw order envelope against the embedded schema and
// decodes it. A non-nil error maps to ErrOrderMalformed.
func ValidateOrder(raw []byte) (*OrderMsg, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if err := orderSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("validate order: %w", err)
	}
	var msg OrderMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if msg.ProtocolVersion != Version {
		return nil, fmt.Errorf("protocol_version %q, want %q", msg.ProtocolVersion, Version)
	}
	return &msg, nil
}
