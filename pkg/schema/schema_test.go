package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/mcpagent/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchRequest struct {
	Query string `json:"query" jsonschema:"description=Search query,required"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results"`
}

func TestNew(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(searchRequest{}))
	require.NoError(t, err)
	require.NotNil(t, s.RawSchema)
	require.NotNil(t, s.Parameters)

	assert.Equal(t, "object", s.Parameters.Type)
	require.NotNil(t, s.Parameters.Properties)

	query, ok := s.Parameters.Properties.Get("query")
	require.True(t, ok)
	assert.Equal(t, "string", query.Type)
	assert.Equal(t, "Search query", query.Description)

	limit, ok := s.Parameters.Properties.Get("limit")
	require.True(t, ok)
	assert.Equal(t, "integer", limit.Type)

	assert.Contains(t, s.Parameters.Required, "query")
	assert.NotContains(t, s.Parameters.Required, "limit")

	// cached per type
	s2, err := schema.New(reflect.TypeOf(searchRequest{}))
	require.NoError(t, err)
	assert.Same(t, s, s2)
}

func TestString(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(searchRequest{}))
	require.NoError(t, err)
	js := s.String()
	assert.Contains(t, js, `"query"`)
	assert.Contains(t, js, `"properties"`)
}

func TestFromAny(t *testing.T) {
	sc, err := schema.FromAny(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"query"},
	})
	require.NoError(t, err)
	assert.Equal(t, "object", sc.Type)
	q, ok := sc.Properties.Get("query")
	require.True(t, ok)
	assert.Equal(t, "string", q.Type)
	assert.Equal(t, []string{"query"}, sc.Required)
}

func TestMustFromAny_Panics(t *testing.T) {
	assert.Panics(t, func() {
		schema.MustFromAny(func() {})
	})
}
