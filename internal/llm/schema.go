package llm

import "github.com/joseph-ayodele/ticket-wallet/constants"

// OptionalKeys lists the nullable string properties of the pass schema.
var OptionalKeys = []string{
	"datetime", "venue", "auditorium", "seat", "reservation",
	"name", "pnr", "flight", "origin", "destination",
}

// RequiredKeys must be present and non-empty in every reply.
var RequiredKeys = []string{"title", "type", "serial", "barcode_message"}

// BuildPassJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to OpenAI alongside the prompt and also use it locally to validate.
func BuildPassJSONSchema() map[string]any {
	props := map[string]any{
		"title":           map[string]any{"type": "string", "minLength": 1},
		"type":            map[string]any{"type": "string", "enum": constants.AsStringSlice()},
		"serial":          map[string]any{"type": "string", "minLength": 1},
		"barcode_message": map[string]any{"type": "string", "minLength": 1},
	}
	for _, k := range OptionalKeys {
		props[k] = nullableString()
	}
	props["datetime"] = map[string]any{
		"type":    []any{"string", "null"},
		"pattern": `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?`,
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             RequiredKeys,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}
