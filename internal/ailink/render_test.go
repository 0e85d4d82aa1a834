package ailink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
)

func TestExpandTemplate(t *testing.T) {
	tmpl := "A{{#if x}}[{{x}}]{{else}}none{{/if}}B"
	assert.Equal(t, "A[1]B", expandTemplate(tmpl, map[string]string{"x": "1"}))
	assert.Equal(t, "AnoneB", expandTemplate(tmpl, map[string]string{"x": "  "}))
	assert.Equal(t, "AnoneB", expandTemplate(tmpl, nil))

	nested := "{{#if a}}a{{#if b}}b{{/if}}{{else}}z{{/if}}"
	assert.Equal(t, "ab", expandTemplate(nested, map[string]string{"a": "1", "b": "1"}))
	assert.Equal(t, "a", expandTemplate(nested, map[string]string{"a": "1"}))
	assert.Equal(t, "z", expandTemplate(nested, nil))

	assert.Equal(t, "{{#if a}}open", expandTemplate("{{#if a}}open", map[string]string{"a": "1"}))
	assert.Equal(t, "keep {{missing}}", expandTemplate("keep {{missing}}", nil))
	assert.Equal(t, "{{#iffy}}", expandTemplate("{{#iffy}}", nil))
}

func TestExpandTemplateDoesNotRescanValues(t *testing.T) {
	vars := map[string]string{
		"document":   `{"note":"{{field_name}} {{#if x}}y{{/if}}"}`,
		"field_name": "mood",
	}
	got := expandTemplate("{{field_name}}: {{document}}", vars)
	assert.Equal(t, `mood: {"note":"{{field_name}} {{#if x}}y{{/if}}"}`, got)
}

func TestRenderMessagesIncludesExamples(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{
		Slug:           "demo",
		SystemTemplate: "Translate into {{lang}}.",
		UserTemplate:   "{{#if doc}}{{doc}}{{else}}empty{{/if}}",
		Examples:       []prompt.Example{{User: "u1", Assistant: "a1"}},
	}}

	msgs, err := renderMessages(def, map[string]string{"lang": "Japanese", "doc": "{}"})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, content.Text("system", "Translate into Japanese."), msgs[0])
	assert.Equal(t, content.Text("user", "u1"), msgs[1])
	assert.Equal(t, content.Text("assistant", "a1"), msgs[2])
	assert.Equal(t, content.Text("user", "{}"), msgs[3])

	_, err = renderMessages(&prompt.Prompt{}, nil)
	require.ErrorContains(t, err, "system prompt is required")
	_, err = renderMessages(nil, nil)
	require.Error(t, err)
}

func TestExtractContentSkipsImages(t *testing.T) {
	resp := &driver.Response{Content: []content.ContentBlock{
		{Type: content.ContentTypeText, Text: `{"a":1}`},
		{Type: content.ContentTypePNG, Data: []byte{1}},
	}}
	assert.Equal(t, `{"a":1}`, extractContent(resp))
	assert.Empty(t, extractContent(nil))
}

func TestTemperatureHint(t *testing.T) {
	assert.Nil(t, temperatureHint(nil))
	assert.Nil(t, temperatureHint(&prompt.Prompt{}))

	got := temperatureHint(&prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"temperature": 0.2}}})
	require.NotNil(t, got)
	assert.InDelta(t, 0.2, *got, 1e-9)

	got = temperatureHint(&prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"temperature": 1}}})
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, *got, 1e-9)
}
