package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, prompts, 3)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)
	require.NoError(t, Require(reg, SlugDecompose, SlugOptions, SlugTranslate))

	decompose, err := reg.Get(SlugDecompose)
	require.NoError(t, err)
	assert.NotEmpty(t, decompose.Config.SystemTemplate)
	assert.Equal(t, []string{"prompt"}, decompose.Config.Input.RequiredVariables)
	require.Len(t, decompose.Config.Examples, 1)
	assert.Contains(t, decompose.Config.Examples[0].Assistant, `"aspectRatio":"16:9"`)

	options, err := reg.Get(SlugOptions)
	require.NoError(t, err)
	assert.Equal(t, "object", options.Config.ResponseSchema["type"])
}

func TestLoadBodyBecomesSystemTemplate(t *testing.T) {
	data := []byte("---\nslug: custom\nuser_template: \"{{prompt}}\"\n---\nYou are helpful.\n")
	p, err := Load("custom.md", data)
	require.NoError(t, err)
	assert.Equal(t, "You are helpful.", p.Config.SystemTemplate)
	assert.Equal(t, "custom.md", p.Source)
}

func TestLoadRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"no system":       "---\nslug: x\n---\n",
		"bad slug":        "---\nslug: Not Valid\n---\nbody",
		"bad example":     "---\nslug: x\nexamples:\n  - user: hi\n---\nbody",
		"bad frontmatter": "---\nslug: [\n---\nbody",
		"bad response":    "---\nslug: x\nresponse_schema:\n  type: 12\n---\nbody",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name, []byte(data))
			require.Error(t, err)
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	p := &Prompt{Config: Config{Slug: "dup", SystemTemplate: "s"}}
	_, err := NewRegistry([]*Prompt{p, p})
	require.ErrorContains(t, err, "duplicate")
}

func TestRegistryForDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nslug: alpha\n---\nsystem a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\nslug: beta\n---\nsystem b"), 0o600))

	reg, err := RegistryFor(dir)
	require.NoError(t, err)
	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Config.Slug)
	assert.Equal(t, "beta", list[1].Config.Slug)

	require.Error(t, Require(reg, SlugDecompose))

	_, err = RegistryFor(t.TempDir())
	require.ErrorContains(t, err, "no prompts found")
}

func TestRequireReportsEveryMissingSlug(t *testing.T) {
	reg, err := NewRegistry([]*Prompt{{Config: Config{Slug: SlugOptions, SystemTemplate: "s"}}})
	require.NoError(t, err)

	err = Require(reg, StudioSlugs...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SlugDecompose)
	assert.Contains(t, err.Error(), SlugTranslate)
	assert.NotContains(t, err.Error(), `"`+SlugOptions+`"`)
}

func TestMissingVariable(t *testing.T) {
	p := &Prompt{Config: Config{Input: InputSpec{RequiredVariables: []string{"field_name", "field_path"}}}}

	name, missing := p.MissingVariable(map[string]string{"field_name": "mood", "field_path": " "})
	assert.True(t, missing)
	assert.Equal(t, "field_path", name)

	_, missing = p.MissingVariable(map[string]string{"field_name": "mood", "field_path": "mood"})
	assert.False(t, missing)
}

func TestLoadDefaultsLabelsSources(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	for _, p := range prompts {
		assert.True(t, strings.HasPrefix(p.Source, "builtin/"), p.Source)
	}
}
