package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRequirements = `{
  "total_area": 120,
  "rooms": [
    {"type": "bedroom", "count": 2, "min_area": 10, "max_area": 20},
    {"type": "bathroom", "count": 1, "min_area": 4, "max_area": 8}
  ],
  "style": "modern",
  "constraints": {"min_room_area": 4, "max_room_area": 40, "ceiling_height": 2.8}
}`

func TestValidateOutput_Requirements(t *testing.T) {
	require.NoError(t, ValidateOutput(RequirementsOutputSchema(), validRequirements))
}

func TestValidateOutput_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `this is not json`},
		{"missing field", `{"total_area": 120, "rooms": [], "style": "modern"}`},
		{"extra field", `{"total_area": 120, "rooms": [], "style": "modern",
			"constraints": {"min_room_area": 4, "max_room_area": 40, "ceiling_height": 2.8}, "pool": true}`},
		{"unknown room type", `{"total_area": 120, "rooms": [{"type": "dungeon", "count": 1, "min_area": 1, "max_area": 2}],
			"style": "modern", "constraints": {"min_room_area": 4, "max_room_area": 40, "ceiling_height": 2.8}}`},
		{"area below minimum", `{"total_area": 0, "rooms": [], "style": "modern",
			"constraints": {"min_room_area": 4, "max_room_area": 40, "ceiling_height": 2.8}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutput(RequirementsOutputSchema(), tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaValidation)
		})
	}
}

func TestValidateOutput_QueryResult(t *testing.T) {
	assert.NoError(t, ValidateOutput(QueryOutputSchema(), `{"response": "ok", "suggested_actions": ["check walls"]}`))
	assert.ErrorIs(t, ValidateOutput(QueryOutputSchema(), `{"response": 3, "suggested_actions": []}`), ErrSchemaValidation)
}

func TestValidateOutput_NilSchema(t *testing.T) {
	assert.NoError(t, ValidateOutput(nil, "anything"))
}
