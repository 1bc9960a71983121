package llm

// Schema helpers for building JSON-Schema documents as generic maps. The same
// map is rendered into prompts and used to validate the reply.

func Object(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func String() map[string]any { return map[string]any{"type": "string"} }

// NullableString accepts a string or null.
func NullableString() map[string]any { return map[string]any{"type": []any{"string", "null"}} }

func Integer() map[string]any { return map[string]any{"type": "integer"} }

// NullableNumber accepts a number or null.
func NullableNumber() map[string]any { return map[string]any{"type": []any{"number", "null"}} }

func Boolean() map[string]any { return map[string]any{"type": "boolean"} }

func ArrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}
