package submission

import "internship-intake/internal/common/validation"

var preferencePayloadSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["preferences"],
	"properties": {
		"preferences": {
			"type": "array",
			"minItems": 1,
			"maxItems": 5,
			"items": {
				"type": "object",
				"required": ["sector", "role", "location"],
				"properties": {
					"sector":   {"type": "string", "minLength": 1},
					"role":     {"type": "string", "minLength": 1},
					"location": {"type": "string"}
				},
				"additionalProperties": false
			}
		}
	}
}`)
