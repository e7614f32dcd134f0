package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsInput struct {
	IndexName string `json:"indexName" jsonschema:"required,description=Index to inspect"`
	Limit     int    `json:"limit,omitempty"`
}

type nestedInput struct {
	ID     string     `json:"id" jsonschema:"required"`
	Filter statsInput `json:"filter"`
	Tags   []string   `json:"tags,omitempty"`
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"string", KindString},
		{"integer", KindInteger},
		{"number", KindNumber},
		{"boolean", KindBoolean},
		{"array", KindArray},
		{"object", KindObject},
		{"null", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {
			"indexName": {"type": "string", "description": "Target index"},
			"hitsPerPage": {"type": ["integer", "null"], "minimum": 1, "maximum": 1000},
			"tags": {"type": "array", "items": {"type": "string"}},
			"requestBody": {
				"type": "object",
				"properties": {
					"params": {"type": "object", "properties": {"query": {"type": "string", "pattern": "^.*$"}}}
				}
			},
			"loose": true
		},
		"required": ["indexName"]
	}`)

	s, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"indexName"}, s.Required)
	assert.Equal(t, []string{"hitsPerPage", "indexName", "loose", "requestBody", "tags"}, s.Names())

	idx := s.Property("indexName")
	require.NotNil(t, idx)
	assert.Equal(t, KindString, idx.Kind())
	assert.Equal(t, "Target index", idx.Description)

	hits := s.Property("hitsPerPage")
	assert.Equal(t, KindInteger, hits.Kind())
	assert.Equal(t, float64(1), hits.Constraints["minimum"])
	assert.Equal(t, float64(1000), hits.Constraints["maximum"])
	assert.Equal(t, []string{"integer", "null"}, hits.TypeList)
	assert.Equal(t, KindUnknown, hits.ValueKind())
	assert.Equal(t, KindString, idx.ValueKind())

	tags := s.Property("tags")
	require.NotNil(t, tags.Items)
	assert.Equal(t, KindString, tags.Items.Kind())

	body := s.Property("requestBody")
	require.Contains(t, body.Properties, "params")
	query := body.Properties["params"].Properties["query"]
	require.NotNil(t, query)
	assert.Equal(t, "^.*$", query.Constraints["pattern"])

	loose := s.Property("loose")
	assert.False(t, loose.Shaped)
	assert.False(t, loose.HasType())
	assert.Equal(t, KindString, loose.ValueKind(), "an absent type counts as a string")
	assert.Nil(t, tags.TypeList)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"not an object", `["a"]`},
		{"properties not an object", `{"properties": []}`},
		{"required not a list", `{"properties": {}, "required": "a"}`},
		{"required entry not a string", `{"properties": {"a": {}}, "required": [1]}`},
		{"required not declared", `{"properties": {"a": {}}, "required": ["b"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(json.RawMessage(tt.raw))
			require.Error(t, err)

			var schemaErr *Error
			assert.True(t, errors.As(err, &schemaErr))
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		s, err := Parse(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Empty(t, s.Properties)
		assert.Empty(t, s.Required)
	}
}

func TestLenient(t *testing.T) {
	s := Lenient(json.RawMessage(`{"properties": {"a": {"type": "string"}}, "required": ["a", "ghost", 3]}`))
	assert.Equal(t, []string{"a", "ghost"}, s.Required)
	assert.Equal(t, KindString, s.Property("a").Kind())

	s = Lenient(json.RawMessage(`{"properties": [], "required": "a"}`))
	assert.Empty(t, s.Properties)
	assert.Empty(t, s.Required)

	s = Lenient(json.RawMessage(`not json`))
	assert.NotNil(t, s.Properties)
}

func TestReflect(t *testing.T) {
	s, err := Reflect[statsInput]()
	require.NoError(t, err)

	assert.Contains(t, s.Required, "indexName")
	assert.NotContains(t, s.Required, "limit")
	assert.Equal(t, KindString, s.Property("indexName").Kind())
	assert.Equal(t, "Index to inspect", s.Property("indexName").Description)
	assert.Equal(t, KindInteger, s.Property("limit").Kind())
}

func TestReflect_Nested(t *testing.T) {
	s := MustReflect[nestedInput]()

	filter := s.Property("filter")
	require.NotNil(t, filter)
	assert.Equal(t, KindObject, filter.Kind())
	assert.Contains(t, filter.Properties, "indexName")

	tags := s.Property("tags")
	assert.Equal(t, KindArray, tags.Kind())
	assert.Equal(t, KindString, tags.Items.Kind())
}

func TestReflector_DoNotReference(t *testing.T) {
	assert.True(t, Reflector.DoNotReference)

	raw, err := Generate[nestedInput]()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$ref")
}

func TestNilSafety(t *testing.T) {
	var s *Schema
	assert.Nil(t, s.Property("x"))
	assert.Nil(t, s.Names())

	var p *Property
	assert.Equal(t, KindUnknown, p.Kind())
	assert.False(t, p.HasType())
}
