package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectPlain(t *testing.T) {
	got, err := ExtractJSONObject(`{"location": "Toronto"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location": "Toronto"}`, got)
}

func TestExtractJSONObjectWhitespace(t *testing.T) {
	got, err := ExtractJSONObject("\n  {\"location\": \"Vancouver\"}  \n")
	require.NoError(t, err)
	assert.JSONEq(t, `{"location": "Vancouver"}`, got)
}

func TestExtractJSONObjectFenced(t *testing.T) {
	response := "Here is the result:\n```json\n{\"location\": \"Banff\"}\n```\nLet me know if you need more."
	got, err := ExtractJSONObject(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location": "Banff"}`, got)
}

func TestExtractJSONObjectBareFence(t *testing.T) {
	response := "```\n{\"location\": \"Montreal\"}\n```"
	got, err := ExtractJSONObject(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location": "Montreal"}`, got)
}

func TestExtractJSONObjectEmbeddedInProse(t *testing.T) {
	response := `The user is asking about {"location": "Quebec City"} based on context.`
	got, err := ExtractJSONObject(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location": "Quebec City"}`, got)
}

func TestExtractJSONObjectRepairsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"trailing comma", `{"location": "Toronto",}`},
		{"single quotes", `{'location': 'Toronto'}`},
		{"unquoted key", `{location: "Toronto"}`},
		{"truncated", `{"location": "Toronto"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.response)
			require.NoError(t, err)

			var parsed struct {
				Location string `json:"location"`
			}
			require.NoError(t, json.Unmarshal([]byte(got), &parsed))
			assert.Equal(t, "Toronto", parsed.Location)
		})
	}
}

func TestExtractJSONObjectNoJSON(t *testing.T) {
	for _, response := range []string{"", "I could not determine a location.", "```\nplain text\n```"} {
		_, err := ExtractJSONObject(response)
		assert.Error(t, err, "response: %q", response)
	}
}
