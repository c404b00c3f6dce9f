package llm

const (
	// Area constraints in square metres
	areaMin = 1
	areaMax = 100000

	// Per-type room count ceiling
	roomCountMax = 50

	ceilingHeightMin = 2.0
	ceilingHeightMax = 6.0
)

// RoomTypes lists the room kinds the extractor may return
var RoomTypes = []string{"bedroom", "bathroom", "kitchen", "living_room", "dining_room", "office", "hallway", "storage"}

// ArchitecturalStyles lists the style strings the generator echoes back
var ArchitecturalStyles = []string{"modern", "contemporary", "traditional", "minimalist", "industrial", "colonial", "craftsman"}

// GetRequirementsSchema returns the JSON schema for extracted building requirements
// Note: OpenAI requires additionalProperties: false, which means all properties must be in 'required'
func GetRequirementsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"total_area": map[string]any{
				"type":        "number",
				"minimum":     areaMin,
				"maximum":     areaMax,
				"description": "Total floor area in square metres",
			},
			"rooms": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":     map[string]any{"type": "string", "enum": RoomTypes},
						"count":    map[string]any{"type": "integer", "minimum": 0, "maximum": roomCountMax},
						"min_area": map[string]any{"type": "number", "minimum": 0},
						"max_area": map[string]any{"type": "number", "minimum": 0},
					},
					"required":             []string{"type", "count", "min_area", "max_area"},
					"additionalProperties": false,
				},
			},
			"style": map[string]any{
				"type":        "string",
				"description": "Architectural style, e.g. " + ArchitecturalStyles[0],
			},
			"constraints": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"min_room_area":  map[string]any{"type": "number", "minimum": 0},
					"max_room_area":  map[string]any{"type": "number", "minimum": 0},
					"ceiling_height": map[string]any{"type": "number", "minimum": ceilingHeightMin, "maximum": ceilingHeightMax},
				},
				"required":             []string{"min_room_area", "max_room_area", "ceiling_height"},
				"additionalProperties": false,
			},
		},
		"required":             []string{"total_area", "rooms", "style", "constraints"},
		"additionalProperties": false,
	}
}

// GetQueryResultSchema returns the JSON schema for Revit query answers
func GetQueryResultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{"type": "string"},
			"suggested_actions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"response", "suggested_actions"},
		"additionalProperties": false,
	}
}

// RequirementsOutputSchema wraps GetRequirementsSchema for a GenerationRequest
func RequirementsOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        "building_requirements",
		Description: "Structured building requirements extracted from a natural language description",
		Schema:      GetRequirementsSchema(),
	}
}

// QueryOutputSchema wraps GetQueryResultSchema for a GenerationRequest
func QueryOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        "revit_query_result",
		Description: "Answer to a question about Revit model elements",
		Schema:      GetQueryResultSchema(),
	}
}
