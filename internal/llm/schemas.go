package llm

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Advisory payloads are untrusted; each one is validated against its
// schema before any field is read.

var goalSchema = jsonschema.MustCompileString("goal.schema.json", `{
  "type": "object",
  "required": ["description", "target_type", "target_value", "reward"],
  "properties": {
    "description": {"type": "string", "minLength": 1},
    "target_type": {"enum": ["population", "money", "building_count"]},
    "target_value": {"type": "number", "exclusiveMinimum": 0},
    "building_type": {"type": "string"},
    "reward": {"type": "number", "minimum": 0}
  }
}`)

var eventSchema = jsonschema.MustCompileString("event.schema.json", `{
  "type": "object",
  "required": ["title", "description", "type", "choices"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "type": {"enum": ["weird", "disaster", "opportunity"]},
    "choices": {
      "type": "array",
      "minItems": 2,
      "maxItems": 2,
      "items": {
        "type": "object",
        "required": ["label", "effect_text", "effect"],
        "properties": {
          "label": {"type": "string", "minLength": 1},
          "effect_text": {"type": "string"},
          "effect": {
            "type": "object",
            "properties": {
              "money": {"type": "number"},
              "population": {"type": "integer"},
              "happiness": {"type": "number"},
              "education": {"type": "number"},
              "safety": {"type": "number"}
            }
          }
        }
      }
    }
  }
}`)

var actionSchema = jsonschema.MustCompileString("action.schema.json", `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"enum": ["BUILD", "DEMOLISH", "WAIT"]},
    "building_type": {"type": "string"},
    "x": {"type": "integer", "minimum": 0},
    "y": {"type": "integer", "minimum": 0},
    "reasoning": {"type": "string"}
  }
}`)

// validatePayload checks raw JSON against a schema. The raw bytes are
// decoded fresh so validation sees exactly what was sent.
func validatePayload(schema *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload schema: %w", err)
	}
	return nil
}
