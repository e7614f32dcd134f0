package toolspec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchSchema = `{
	"type": "object",
	"properties": {
		"applicationId": {"type": "string", "description": "Application ID"},
		"indexName": {"type": ["string", "null"]},
		"hitsPerPage": {"type": "integer", "minimum": 1, "maximum": 1000, "example": 20},
		"mode": {"type": "string", "enum": ["neuralSearch", "keywordSearch"], "pattern": "^[a-z]+"},
		"attributes": {"type": "array", "items": {"type": "string"}},
		"loose": {"type": "array"},
		"raw": "not an object",
		"requestBody": {
			"type": "object",
			"properties": {
				"params": {
					"type": "object",
					"properties": {
						"query": {"type": "string", "minLength": 0, "maxLength": 512}
					}
				}
			}
		}
	},
	"required": ["applicationId", "indexName"]
}`

func TestConvertRaw(t *testing.T) {
	spec := ConvertRaw("searchSingleIndex", "Search an index", json.RawMessage(searchSchema))

	assert.Equal(t, "function", spec.Type)
	assert.Equal(t, "searchSingleIndex", spec.Function.Name)
	assert.Equal(t, "Search an index", spec.Function.Description)

	params := spec.Function.Parameters
	assert.Equal(t, "object", params.Type)
	assert.False(t, params.AdditionalProperties)
	assert.ElementsMatch(t, []string{"applicationId", "indexName"}, params.Required)

	props := params.Properties
	assert.Equal(t, map[string]any{"type": "string", "description": "Application ID"}, props["applicationId"])
	assert.Equal(t, map[string]any{"type": "string", "description": "Parameter indexName"}, props["indexName"])

	hits := props["hitsPerPage"]
	assert.Equal(t, float64(1), hits["minimum"])
	assert.Equal(t, float64(1000), hits["maximum"])
	assert.Equal(t, float64(20), hits["example"])

	mode := props["mode"]
	assert.Equal(t, []any{"neuralSearch", "keywordSearch"}, mode["enum"])
	assert.Equal(t, "^[a-z]+", mode["pattern"])

	assert.Equal(t, map[string]any{"type": "string"}, props["attributes"]["items"])
	assert.Equal(t, map[string]any{"type": "string"}, props["loose"]["items"])
	assert.Equal(t, map[string]any{"type": "string", "description": "Parameter raw"}, props["raw"])
}

func TestConvertRaw_ThreeLevelNesting(t *testing.T) {
	spec := ConvertRaw("searchSingleIndex", "", json.RawMessage(searchSchema))

	body := spec.Function.Parameters.Properties["requestBody"]
	assert.Equal(t, "object", body["type"])
	assert.Equal(t, true, body["additionalProperties"])

	members, ok := body["properties"].(map[string]any)
	require.True(t, ok)
	params, ok := members["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, params["additionalProperties"])

	inner, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	query, ok := inner["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, float64(0), query["minLength"])
	assert.Equal(t, float64(512), query["maxLength"])
}

func TestConvertRaw_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"no properties", `{"type":"object"}`},
		{"malformed properties", `{"properties": [1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ConvertRaw("listIndices", "", json.RawMessage(tt.raw))
			assert.Equal(t, "Algolia tool: listIndices", spec.Function.Description)
			assert.Empty(t, spec.Function.Parameters.Properties)
			assert.NotNil(t, spec.Function.Parameters.Required)
		})
	}
}

func TestFunctionSpec_JSONShape(t *testing.T) {
	spec := ConvertRaw("getSettings", "Get settings", json.RawMessage(`{"properties":{"indexName":{"type":"string"}},"required":["indexName"]}`))

	b, err := json.Marshal(spec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	fn := got["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "function", got["type"])
	assert.Equal(t, false, params["additionalProperties"])
	assert.Equal(t, []any{"indexName"}, params["required"])
}

func TestFunctionSpec_ToolDef(t *testing.T) {
	spec := ConvertRaw("getSettings", "Get settings", json.RawMessage(`{"properties":{"indexName":{"type":"string"}}}`))

	def, err := spec.ToolDef()
	require.NoError(t, err)
	assert.Equal(t, "getSettings", def.Name)
	assert.Equal(t, "Get settings", def.Description)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"indexName": {"type": "string", "description": "Parameter indexName"}},
		"required": [],
		"additionalProperties": false
	}`, string(def.Parameters))
}
