package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
)

func parse(t *testing.T, text string) *document.Map {
	t.Helper()
	doc, err := document.Parse([]byte(text))
	require.NoError(t, err)
	return doc
}

func docJSON(t *testing.T, e *Editor) string {
	t.Helper()
	raw, err := e.Document().MarshalJSON()
	require.NoError(t, err)
	return string(raw)
}

func press(e *Editor, key Key, modifier bool) bool {
	return e.Handle(Input{Key: key, Modifier: modifier})
}

func TestLoadSelectsFirstField(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":{"b":"x","c":"y"},"d":"z"}`))

	sel := e.Selection()
	assert.Equal(t, "a.b", sel.Path)
	assert.Equal(t, ModeField, sel.Mode)
	assert.Equal(t, 0, sel.Highlight)

	e.Load(document.NewMap())
	assert.Equal(t, "", e.Selection().Path)
}

func TestFieldNavigation(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":{"b":"x","c":"y"},"d":"z"}`))

	assert.True(t, press(e, KeyUp, false))
	assert.Equal(t, "a.b", e.Selection().Path, "up at first field is a no-op")

	press(e, KeyDown, false)
	press(e, KeyDown, false)
	assert.Equal(t, "d", e.Selection().Path)

	press(e, KeyDown, false)
	assert.Equal(t, "d", e.Selection().Path, "down at last field is a no-op")

	press(e, KeyUp, false)
	assert.Equal(t, "a.c", e.Selection().Path)

	assert.False(t, press(e, KeyUp, true))
	assert.Equal(t, "a.c", e.Selection().Path)
}

func TestDownSelectsFirstWhenNothingSelected(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"1"}`))
	require.NoError(t, e.ApplyText(`{"b":"2","c":"3"}`))
	assert.Equal(t, "", e.Selection().Path)

	press(e, KeyDown, false)
	assert.Equal(t, "b", e.Selection().Path)
}

func TestRightEntersSelectAtCurrentValue(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"color":"Blue","other":"Teal"}`))

	assert.True(t, press(e, KeyRight, false))
	assert.Equal(t, ModeSelect, e.Selection().Mode)
	assert.Equal(t, 4, e.Selection().Highlight)

	press(e, KeyLeft, true)
	press(e, KeyDown, false)
	assert.True(t, press(e, KeyRight, true))
	assert.Equal(t, 0, e.Selection().Highlight, "value not among options starts at 0")
}

func TestSelectModeHighlightClamps(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x"}`))
	e.SetOptions("a", []string{"one", "two", "three"})
	press(e, KeyRight, false)

	press(e, KeyLeft, false)
	assert.Equal(t, 0, e.Selection().Highlight)

	for i := 0; i < 5; i++ {
		press(e, KeyRight, i%2 == 0)
	}
	assert.Equal(t, 2, e.Selection().Highlight)

	press(e, KeyLeft, false)
	assert.Equal(t, 1, e.Selection().Highlight)

	assert.False(t, press(e, KeyUp, false))
	assert.False(t, press(e, KeyDown, false))
	assert.Equal(t, ModeSelect, e.Selection().Mode)
}

func TestRightThenModifierLeftReturnsToField(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":{"b":"x"},"c":"y"}`))
	press(e, KeyDown, false)

	press(e, KeyRight, false)
	require.Equal(t, ModeSelect, e.Selection().Mode)
	press(e, KeyLeft, true)

	assert.Equal(t, ModeField, e.Selection().Mode)
	assert.Equal(t, "c", e.Selection().Path)
}

func TestTextMode(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x"}`))

	assert.True(t, press(e, KeyLeft, false))
	assert.Equal(t, ModeText, e.Selection().Mode)

	assert.False(t, press(e, KeyLeft, false))
	assert.False(t, press(e, KeyRight, true))
	assert.Equal(t, ModeText, e.Selection().Mode)

	assert.True(t, e.Handle(Input{Key: KeyLeft, Modifier: true, InTextInput: true}))
	assert.Equal(t, ModeField, e.Selection().Mode)

	press(e, KeyLeft, true)
	assert.Equal(t, ModeText, e.Selection().Mode, "modified left from field also enters text")
}

func TestInputsIgnoredInsideTextControl(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x","b":"y"}`))

	assert.False(t, e.Handle(Input{Key: KeyDown, InTextInput: true}))
	assert.Equal(t, "a", e.Selection().Path)

	assert.True(t, e.Handle(Input{Key: KeyRight, Modifier: true, InTextInput: true}))
	assert.Equal(t, ModeSelect, e.Selection().Mode)
}

func TestCommitUpdatesOnlyTargetLeaf(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":{"b":"x","c":"y"}}`))
	require.NoError(t, e.Select("a.b"))

	e.SetOptions("a.b", []string{"z"})
	press(e, KeyRight, false)
	e.Highlight(0)
	assert.True(t, press(e, KeyEnter, false))

	assert.Equal(t, `{"a":{"b":"z","c":"y"}}`, docJSON(t, e))
	assert.Equal(t, ModeSelect, e.Selection().Mode)
	assert.Equal(t, "a.b", e.Selection().Path)

	paths := []string{}
	for _, f := range e.Fields() {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"a.b", "a.c"}, paths)
	assert.Contains(t, e.TextBuffer(), `"b": "z"`)
}

func TestCommitWithoutSelectionIsNoop(t *testing.T) {
	e := New(nil)
	assert.False(t, e.Commit())
	assert.False(t, press(e, KeyRight, false))
}

func TestSelectUnknownField(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x"}`))
	err := e.Select("missing")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
	assert.Equal(t, "a", e.Selection().Path)
}

func TestApplyTextFailureKeepsDocument(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":{"b":"x"}}`))
	fieldsBefore := e.Fields()

	err := e.ApplyText(`{"a": {"b": "broken"`)
	require.Error(t, err)
	assert.True(t, errdefs.IsParse(err))

	assert.Equal(t, `{"a":{"b":"x"}}`, docJSON(t, e))
	assert.Equal(t, fieldsBefore, e.Fields())
	assert.Equal(t, `{"a": {"b": "broken"`, e.TextBuffer())
}

func TestApplyTextKeepsSurvivingSelection(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"1","b":"2"}`))
	press(e, KeyDown, false)

	require.NoError(t, e.ApplyText(`{"z":"0","b":"3"}`))
	assert.Equal(t, "b", e.Selection().Path)
	assert.Equal(t, "3", e.CurrentValue())
}

func TestOptionRequestStaleness(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x","b":"y"}`))

	t.Run("AppliesLatest", func(t *testing.T) {
		req, ok := e.BeginOptionRequest()
		require.True(t, ok)
		assert.Equal(t, "a", req.Path)
		assert.Equal(t, "x", req.CurrentValue)

		assert.True(t, e.ApplyOptionResult(req, []string{"p", "q"}))
		assert.Equal(t, []string{"p", "q"}, e.CurrentOptions())
	})

	t.Run("DiscardsSuperseded", func(t *testing.T) {
		first, _ := e.BeginOptionRequest()
		second, _ := e.BeginOptionRequest()

		assert.False(t, e.ApplyOptionResult(first, []string{"old"}))
		assert.True(t, e.ApplyOptionResult(second, []string{"new"}))
		assert.Equal(t, []string{"new"}, e.CurrentOptions())
	})

	t.Run("DiscardsAfterNavigation", func(t *testing.T) {
		req, _ := e.BeginOptionRequest()
		press(e, KeyDown, false)

		assert.False(t, e.ApplyOptionResult(req, []string{"late"}))
		assert.False(t, e.Catalog().Has("b"))

		press(e, KeyUp, false)
		assert.False(t, e.ApplyOptionResult(req, []string{"late"}), "returning to the field does not revive the request")
		assert.Equal(t, []string{"new"}, e.CurrentOptions())
	})
}

func TestSetOptionsClampsHighlight(t *testing.T) {
	e := New(nil)
	e.Load(parse(t, `{"a":"x"}`))
	press(e, KeyRight, false)
	e.Highlight(8)
	assert.Equal(t, 8, e.Selection().Highlight)

	e.SetOptions("a", []string{"only", "two"})
	assert.Equal(t, 1, e.Selection().Highlight)

	stored := e.SetOptionsFromText("\n  first \n\n")
	assert.Equal(t, []string{"first"}, stored)
	assert.Equal(t, 0, e.Selection().Highlight)
}

func TestTemplatePropagation(t *testing.T) {
	e := New(options.NewCatalog(nil))
	original := core.Template{
		ID:       "tmpl-1",
		Name:     "portrait",
		Document: parse(t, `{"subject":{"description":"a cat"},"mood":"calm"}`),
		Options:  map[string][]string{"mood": {"calm", "eerie"}},
	}
	e.LoadTemplate(original)

	assert.Equal(t, []string{"calm", "eerie"}, e.Catalog().OptionsFor("mood"))

	press(e, KeyDown, false)
	press(e, KeyRight, false)
	assert.Equal(t, 0, e.Selection().Highlight)
	press(e, KeyRight, false)
	press(e, KeyEnter, false)

	updated, ok := e.Template()
	require.True(t, ok)
	raw, err := updated.Document.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"subject":{"description":"a cat"},"mood":"eerie"}`, string(raw))
	assert.Equal(t, "tmpl-1", updated.ID)

	untouched, err := original.Document.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"subject":{"description":"a cat"},"mood":"calm"}`, string(untouched))

	e.Reset()
	_, ok = e.Template()
	assert.False(t, ok)
	assert.False(t, e.Catalog().Has("mood"))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "field", ModeField.String())
	assert.Equal(t, "select", ModeSelect.String())
	assert.Equal(t, "text", ModeText.String())
}
