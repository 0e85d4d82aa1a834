package options

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

func TestOptionsForDefaults(t *testing.T) {
	c := NewCatalog(nil)

	first := c.OptionsFor("subject.color")
	require.Len(t, first, 9)
	first[0] = "mutated"

	second := c.OptionsFor("subject.color")
	assert.Equal(t, DefaultOptions, second)
	assert.Equal(t, "Red", DefaultOptions[0])
	assert.False(t, c.Has("subject.color"))

	var nilCatalog *Catalog
	assert.Equal(t, DefaultOptions, nilCatalog.OptionsFor("x"))
}

func TestSetOptions(t *testing.T) {
	c := &Catalog{}

	c.SetOptions("a.b", []string{"z", "z"})
	assert.Equal(t, []string{"z", "z"}, c.OptionsFor("a.b"))
	assert.True(t, c.Has("a.b"))

	c.SetOptions("a.b", nil)
	assert.Equal(t, DefaultOptions, c.OptionsFor("a.b"))
	assert.Empty(t, c.Entries())
}

func TestSetOptionsFromText(t *testing.T) {
	c := &Catalog{}
	stored := c.SetOptionsFromText("mood", "calm\n\n   \r\n  eerie  \nbright\n")
	assert.Equal(t, []string{"calm", "eerie", "bright"}, stored)
	assert.Equal(t, stored, c.OptionsFor("mood"))
}

func TestEntriesAreCopies(t *testing.T) {
	c := NewCatalog(map[string][]string{"a": {"x"}, "empty": {}})
	entries := c.Entries()
	entries["a"][0] = "changed"

	assert.Equal(t, []string{"x"}, c.OptionsFor("a"))
	assert.NotContains(t, c.Entries(), "empty")
}

func TestExtractOptions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"BareArray", `["Crimson", "Navy"]`, []string{"Crimson", "Navy"}},
		{"OptionsField", `{"options":["A","B"],"choices":["C"]}`, []string{"A", "B"}},
		{"ChoicesField", `{"choices":["Red","Teal"]}`, []string{"Red", "Teal"}},
		{"FirstArrayProperty", `{"note":"x","values":["one",2],"other":["no"]}`, []string{"one", "2"}},
		{"EmbeddedFallback", `not json [ "X","Y" ] trailing`, []string{"X", "Y"}},
		{"CodeFence", "```json\n{\"options\":[\" spaced \",\"\"]}\n```", []string{"spaced"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractOptions(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractOptionsFailures(t *testing.T) {
	for name, raw := range map[string]string{
		"NoArray":         `{"foo":"bar"}`,
		"NotJSON":         `nothing to see`,
		"BrokenEmbedded":  `prefix [ "X", ] suffix`,
		"ScalarDocument":  `"just text"`,
		"EmbeddedIsEmpty": `]wrong order[`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractOptions(raw)
			require.Error(t, err)
			assert.True(t, errdefs.IsParse(err))
		})
	}
}

type stubSuggester struct {
	got  SuggestRequest
	resp []string
	err  error
}

func (s *stubSuggester) SuggestOptions(ctx context.Context, req SuggestRequest) ([]string, error) {
	s.got = req
	return s.resp, s.err
}

func TestRequestAIOptions(t *testing.T) {
	doc, err := document.Parse([]byte(`{"subject":{"color":"red"}}`))
	require.NoError(t, err)

	t.Run("DelegatesWithoutStoring", func(t *testing.T) {
		c := &Catalog{}
		s := &stubSuggester{resp: []string{"Scarlet", "Rose"}}

		got, err := c.RequestAIOptions(context.Background(), s, "subject.color", "red", doc)
		require.NoError(t, err)
		assert.Equal(t, []string{"Scarlet", "Rose"}, got)
		assert.Equal(t, "color", s.got.FieldName)
		assert.Equal(t, "subject.color", s.got.FieldPath)
		assert.Equal(t, "red", s.got.CurrentValue)
		assert.Same(t, doc, s.got.Document)
		assert.False(t, c.Has("subject.color"))
	})

	t.Run("PropagatesFailure", func(t *testing.T) {
		c := &Catalog{}
		upstream := errdefs.NewExternal("options", 503, errors.New("down"))
		_, err := c.RequestAIOptions(context.Background(), &stubSuggester{err: upstream}, "subject.color", "red", doc)
		require.Error(t, err)
		assert.True(t, errdefs.IsExternal(err))
	})

	t.Run("MissingSuggester", func(t *testing.T) {
		_, err := (&Catalog{}).RequestAIOptions(context.Background(), nil, "a", "", doc)
		require.Error(t, err)
	})
}
