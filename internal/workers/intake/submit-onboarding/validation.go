package submitonboarding

import "internship-intake/internal/common/validation"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sagaId"],
	"properties": {
		"sagaId": {"type": "string", "minLength": 1}
	}
}`)

func InputSchema() *validation.Schema {
	return inputSchema
}
