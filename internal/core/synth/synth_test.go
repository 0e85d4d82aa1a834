package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

func parse(t *testing.T, text string) *document.Map {
	t.Helper()
	doc, err := document.Parse([]byte(text))
	require.NoError(t, err)
	return doc
}

func assertNoRepeats(t *testing.T, prompt string) {
	t.Helper()
	if prompt == "" {
		return
	}
	seen := map[string]bool{}
	for _, part := range strings.Split(prompt, ", ") {
		assert.False(t, seen[part], "duplicate part %q in %q", part, prompt)
		seen[part] = true
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	assert.Equal(t, "", Simplified.Synthesize(document.NewMap()))
	assert.Equal(t, "", Rich.Synthesize(document.NewMap()))
	assert.Equal(t, "", Simplified.Synthesize(nil))
	assert.Equal(t, "", Rich.Synthesize(parse(t, `{"subject":{},"mood":{"description":"  "}}`)))
}

func TestSynthesizeSubjectDescription(t *testing.T) {
	doc := parse(t, `{"subject":{"description":"a cat"}}`)
	assert.Equal(t, "a cat", Simplified.Synthesize(doc))
	assert.Equal(t, "a cat", Rich.Synthesize(doc))
}

func TestSynthesizeDecomposedScenario(t *testing.T) {
	doc := parse(t, `{"subject":{"description":"A red bicycle"},"format":{"aspectRatio":"16:9"}}`)
	assert.Equal(t, "A red bicycle, --ar 16:9", Simplified.Synthesize(doc))
}

func TestFormatFlagOrder(t *testing.T) {
	doc := parse(t, `{"format":{"stylize":250,"custom":"raw","quality":"hd","style":"vivid","aspectRatio":"3:2","seed":7}}`)
	assert.Equal(t, "--ar 3:2, --style vivid, --quality hd, --stylize 250, --custom raw", Simplified.Synthesize(doc))
}

func TestSectionPrefixes(t *testing.T) {
	doc := parse(t, `{
		"subject":{"description":"a fox","pose":"sitting"},
		"style":{"description":"watercolor"},
		"background":{"description":"snowy forest"},
		"mood":{"description":"quiet"},
		"lighting":{"key":"soft"}
	}`)

	t.Run("Simplified", func(t *testing.T) {
		assert.Equal(t, "a fox, sitting, watercolor, snowy forest, quiet, soft", Simplified.Synthesize(doc))
	})

	t.Run("Rich", func(t *testing.T) {
		assert.Equal(t, "a fox, pose: sitting, watercolor, background: snowy forest, mood: quiet, key: soft", Rich.Synthesize(doc))
	})

	t.Run("BareBackground", func(t *testing.T) {
		bare := parse(t, `{"background":"city at night"}`)
		assert.Equal(t, "background: city at night", Rich.Synthesize(bare))
		assert.Equal(t, "city at night", Simplified.Synthesize(bare))
	})
}

func TestSequencesAndScalars(t *testing.T) {
	doc := parse(t, `{"tags":["bold"," neon ",3,true,{"extra":"glow"}],"count":2,"flag":true,"note":"  "}`)
	assert.Equal(t, "bold, neon, glow, 2, true", Simplified.Synthesize(doc))
}

func TestDeduplication(t *testing.T) {
	doc := parse(t, `{
		"subject":{"description":"a cat, a hat"},
		"style":{"description":"a cat"},
		"extra":["a hat","new"],
		"more":{"inner":"new"}
	}`)

	prompt := Simplified.Synthesize(doc)
	assert.Equal(t, "a cat, a hat, new", prompt)
	assertNoRepeats(t, prompt)
	assertNoRepeats(t, Rich.Synthesize(doc))
}

func TestRichLabelledSections(t *testing.T) {
	doc := parse(t, `{
		"subject":{"description":"portrait of a dancer"},
		"optional_midjourney":{"v":"6","chaos":10},
		"optional_negative_tokens":["blurry","extra fingers"],
		"styling_keywords":["editorial","high fashion"],
		"quality_flags":"ultra detailed",
		"attire_policy":{"description":"modest","colors":"muted"},
		"hair_tone_lock":true,
		"palette":["teal","orange"],
		"pose_and_framing":{"description":"three-quarter view"},
		"lighting_mood":"rim light",
		"typography":{"font":"serif"}
	}`)

	prompt := Rich.Synthesize(doc)
	assert.Equal(t, strings.Join([]string{
		"portrait of a dancer",
		"--v 6",
		"--chaos 10",
		"--no blurry; extra fingers",
		"keywords: editorial; high fashion",
		"quality: ultra detailed",
		"attire: modest",
		"attire colors: muted",
		"hair tone locked",
		"palette: teal; orange",
		"pose and framing: three-quarter view",
		"lighting: rim light",
		"typography font: serif",
	}, ", "), prompt)
	assertNoRepeats(t, prompt)
}

func TestRichLabelsNotAppliedInSimplified(t *testing.T) {
	doc := parse(t, `{"palette":["teal","orange"],"hair_tone_lock":false}`)
	assert.Equal(t, "teal, orange, false", Simplified.Synthesize(doc))
	assert.Equal(t, "palette: teal; orange", Rich.Synthesize(doc))
}

func TestMidjourneyStringVerbatim(t *testing.T) {
	doc := parse(t, `{"optional_midjourney":"--v 6 --q 2"}`)
	assert.Equal(t, "--v 6 --q 2", Rich.Synthesize(doc))
}

func TestSynthesizeIsPure(t *testing.T) {
	doc := parse(t, `{"subject":{"description":"a cat","extra":"x"},"format":{"aspectRatio":"1:1"}}`)
	before, err := doc.MarshalJSON()
	require.NoError(t, err)

	first := Rich.Synthesize(doc)
	second := Rich.Synthesize(doc)

	after, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
}

func TestCustomFormatter(t *testing.T) {
	s := NewSimplified()
	s.Register("camera", func(w *Writer, key string, value any) {
		if text, ok := value.(string); ok {
			w.Add("shot on " + text)
		}
	})
	doc := parse(t, `{"camera":"35mm"}`)
	assert.Equal(t, "shot on 35mm", s.Synthesize(doc))
	assert.Equal(t, "35mm", Simplified.Synthesize(doc))
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("RICH")
	require.True(t, ok)
	assert.Equal(t, ModeRich, s.Name())

	s, ok = Lookup("")
	require.True(t, ok)
	assert.Equal(t, ModeSimplified, s.Name())

	_, ok = Lookup("fancy")
	assert.False(t, ok)
}

func TestEmbeddedCommasKept(t *testing.T) {
	doc := parse(t, `{"subject":{"description":"a crowd of 1,000 people"},"typography":{"text":"Hello,World"}}`)

	prompt := Simplified.Synthesize(doc)
	assert.Equal(t, "a crowd of 1,000 people, Hello,World", prompt)
	assertNoRepeats(t, prompt)

	prompt = Rich.Synthesize(doc)
	assert.Equal(t, "a crowd of 1,000 people, typography text: Hello,World", prompt)
	assertNoRepeats(t, prompt)
}
