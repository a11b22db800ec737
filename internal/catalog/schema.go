package catalog

// seedSchema is the JSON Schema every catalog seed file must satisfy before
// it is decoded.
var seedSchema = map[string]any{
	"type":     "object",
	"required": []any{"competencies"},
	"properties": map[string]any{
		"competencies": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"id", "code", "name"},
				"additionalProperties": false,
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"code": map[string]any{"type": "string", "minLength": 1},
					"name": map[string]any{"type": "string"},
				},
			},
		},
		"topics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"id", "name"},
				"additionalProperties": false,
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"name": map[string]any{"type": "string"},
					"subtopics": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":                 "object",
							"required":             []any{"id"},
							"additionalProperties": false,
							"properties": map[string]any{
								"id":   map[string]any{"type": "string", "minLength": 1},
								"name": map[string]any{"type": "string"},
								"competencies": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"id", "competency", "level"},
				"additionalProperties": false,
				"properties": map[string]any{
					"id":         map[string]any{"type": "string", "minLength": 1},
					"competency": map[string]any{"type": "string", "minLength": 1},
					"level":      map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	},
}
