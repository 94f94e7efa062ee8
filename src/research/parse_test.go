package research

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const franceJSON = `{"topic":"France","summary":"France is known for its culture.","sources":["https://en.wikipedia.org/wiki/France"],"tools_used":["wiki"]}`

func TestParseFrance(t *testing.T) {
	res, err := Parse(franceJSON)
	require.NoError(t, err)
	assert.Equal(t, "France", res.Topic)
	assert.Equal(t, "France is known for its culture.", res.Summary)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/France"}, res.Sources)
	assert.Equal(t, []string{"wiki"}, res.ToolsUsed)
}

func TestParseProseKeepsRawText(t *testing.T) {
	raw := "Paris is the capital of France."
	res, err := Parse(raw)
	require.Error(t, err)
	assert.Nil(t, res)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, raw, pe.Raw)
	assert.NotEmpty(t, pe.Reason)
	assert.True(t, IsParseError(err))
}

func TestParseAcceptsEmptyListsAndKeepsOrder(t *testing.T) {
	res, err := Parse(`{"topic":"Go","summary":"A language.","sources":[],"tools_used":["search","wiki","search"]}`)
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.Equal(t, []string{"search", "wiki", "search"}, res.ToolsUsed)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"leading whitespace", " " + franceJSON},
		{"trailing newline", franceJSON + "\n"},
		{"code fence", "```json\n" + franceJSON + "\n```"},
		{"prose suffix", franceJSON + " hope this helps"},
		{"two objects", franceJSON + franceJSON},
		{"array", "[" + franceJSON + "]"},
		{"invalid json", `{"topic":"France",}`},
		{"missing tools_used", `{"topic":"France","summary":"x","sources":[]}`},
		{"missing topic", `{"summary":"x","sources":[],"tools_used":[]}`},
		{"sources as string", `{"topic":"France","summary":"x","sources":"wikipedia","tools_used":[]}`},
		{"tools_used with number", `{"topic":"France","summary":"x","sources":[],"tools_used":[1]}`},
		{"summary as number", `{"topic":"France","summary":3,"sources":[],"tools_used":[]}`},
		{"null sources", `{"topic":"France","summary":"x","sources":null,"tools_used":[]}`},
		{"empty topic", `{"topic":"","summary":"x","sources":[],"tools_used":[]}`},
		{"extra key", `{"topic":"France","summary":"x","sources":[],"tools_used":[],"confidence":0.9}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Parse(tc.raw)
			require.Error(t, err)
			assert.Nil(t, res)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.raw, pe.Raw)
		})
	}
}

func TestParseReasonNamesField(t *testing.T) {
	_, err := Parse(`{"topic":"France","summary":"x","sources":"wikipedia","tools_used":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources")
}

func TestParserIsReusable(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := p.Parse(franceJSON)
		require.NoError(t, err)
		assert.Equal(t, "France", res.Topic)
	}
}

func TestRender(t *testing.T) {
	res := &Result{
		Topic:     "France",
		Summary:   "Country in Western Europe.",
		Sources:   []string{"a", "b"},
		ToolsUsed: nil,
	}
	assert.Equal(t, "Topic: France\nSummary: Country in Western Europe.\nSources: a, b\nTools Used: none", res.Render())
}

func TestFormatInstructionsDeterministic(t *testing.T) {
	first := FormatInstructions()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FormatInstructions())
	}
	for _, f := range Fields {
		assert.Contains(t, first, f)
	}
	assert.True(t, strings.Contains(first, "JSON"))
}

func TestSchemaShape(t *testing.T) {
	b, err := Schema()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotContains(t, m, "$schema")
	assert.Equal(t, false, m["additionalProperties"])
	assert.ElementsMatch(t, []any{"topic", "summary", "sources", "tools_used"}, m["required"])

	props := m["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, "array", props["sources"].(map[string]any)["type"])
	assert.Equal(t, "string", props["topic"].(map[string]any)["type"])

	// Callers get their own copy.
	b[0] = 'x'
	again, err := Schema()
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0])
}
