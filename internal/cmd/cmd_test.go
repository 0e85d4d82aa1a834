package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = os.Stdin })

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSynthesizeCommand(t *testing.T) {
	out, err := execute(t, `{"subject":"a cat","mood":"calm"}`, "synthesize", "--mode", "simplified")
	require.NoError(t, err)
	assert.Equal(t, "a cat, calm\n", out)

	path := writeTemp(t, "doc.yaml", "subject: a fox\nbackground: snowy forest\n")
	out, err = execute(t, "", "synthesize", "--mode", "rich", path)
	require.NoError(t, err)
	assert.Equal(t, "a fox, background: snowy forest\n", out)

	_, err = execute(t, `{"subject":"a cat"}`, "synthesize", "--mode", "poster")
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
}

func TestFieldsCommand(t *testing.T) {
	out, err := execute(t, `{"subject":{"description":"a cat"},"mood":"calm"}`, "fields", "-f", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"path":"subject.description","key":"description","value":"a cat"},
		{"path":"mood","key":"mood","value":"calm"}
	]`, out)

	out, err = execute(t, `{"mood":"calm"}`, "fields", "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "1 fields")
}

func TestReadDocument(t *testing.T) {
	doc, err := readDocument(writeTemp(t, "d.json", `{"subject":"a cat"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"subject"}, doc.Keys())

	doc, err = readDocument(writeTemp(t, "d.yml", "subject: a cat\nmood: calm\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"subject", "mood"}, doc.Keys())

	stdin = strings.NewReader("subject: from stdin\n")
	t.Cleanup(func() { stdin = os.Stdin })
	doc, err = readDocument("-")
	require.NoError(t, err)
	value, _ := doc.Get("subject")
	assert.Equal(t, "from stdin", value)

	stdin = strings.NewReader("   ")
	_, err = readDocument("")
	assert.True(t, errdefs.IsValidation(err))

	_, err = readDocument(writeTemp(t, "bad.json", `{"subject":`))
	require.Error(t, err)
}

func TestReadOptions(t *testing.T) {
	entries, err := readOptions(writeTemp(t, "opts.yaml", "mood:\n  - calm\n  - tense\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"mood": {"calm", "tense"}}, entries)

	entries, err = readOptions("")
	require.NoError(t, err)
	assert.Nil(t, entries)

	_, err = readOptions(writeTemp(t, "bad.yaml", "mood: [\n"))
	assert.True(t, errdefs.IsParse(err))
}

func TestResolveOwner(t *testing.T) {
	cfg := &config.Config{Studio: config.StudioConfig{DefaultOwner: " local "}}
	assert.Equal(t, "local", resolveOwner(cfg))

	ownerFlag = "alice"
	t.Cleanup(func() { ownerFlag = "" })
	assert.Equal(t, "alice", resolveOwner(cfg))
}

func TestNewImageLimiter(t *testing.T) {
	assert.Nil(t, newImageLimiter(0))

	limiter := newImageLimiter(2)
	require.NotNil(t, limiter)
	ctx := context.Background()
	key := engine.Key(engine.OperationImages, "alice")
	for i := 0; i < 2; i++ {
		wait, err := limiter.Take(ctx, key)
		require.NoError(t, err)
		require.Zero(t, wait)
	}
	wait, err := limiter.Take(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, wait.Seconds(), 0.0)
}

func TestDecodeImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	data, err := decodeImage(raw)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	data, err = decodeImage("data:image/png;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = decodeImage("not base64!")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out.png")
	require.NoError(t, writeImage(path, core.HistoryEntry{Base64Data: raw}))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(written))
}

func TestImageExtension(t *testing.T) {
	assert.Equal(t, ".png", imageExtension("application/x-unknown-genimage"))
	assert.Equal(t, ".png", imageExtension(""))
	assert.Equal(t, ".jpg", imageExtension("image/jpeg"))
	assert.Equal(t, ".webp", imageExtension("IMAGE/WEBP"))
}

type templateList []core.Template

func (l templateList) ListTemplates(context.Context, string) ([]core.Template, error) {
	return l, nil
}

func (l templateList) SaveTemplate(_ context.Context, tmpl core.Template) (core.Template, error) {
	return tmpl, nil
}

func (l templateList) DeleteTemplate(context.Context, string, string) error {
	return nil
}

func TestFindTemplate(t *testing.T) {
	studio := &engine.Studio{Templates: templateList{
		{ID: "t-1", Name: "Portrait"},
		{ID: "t-2", Name: "t-1"},
	}}
	ctx := context.Background()

	tmpl, err := findTemplate(ctx, studio, "local", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Portrait", tmpl.Name, "ids win over names")

	tmpl, err = findTemplate(ctx, studio, "local", "portrait")
	require.NoError(t, err)
	assert.Equal(t, "t-1", tmpl.ID)

	_, err = findTemplate(ctx, studio, "local", "landscape")
	assert.True(t, errdefs.IsNotFound(err))

	_, err = findTemplate(ctx, &engine.Studio{}, "local", "x")
	assert.ErrorIs(t, err, engine.ErrNotConfigured)
}

func TestBuildInitConfigIsValidYAML(t *testing.T) {
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(buildInitConfig("sk-test")), &parsed))

	path := writeTemp(t, "config.yaml", buildInitConfig("sk-test"))
	config.SetConfigFile(path)
	t.Cleanup(func() { config.SetConfigFile("") })

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	provider, ok := cfg.AILink.Providers["studio-openai"]
	require.True(t, ok)
	assert.True(t, provider.Enabled)
	require.Len(t, provider.Credentials, 1)
	assert.Equal(t, "sk-test", provider.Credentials[0].APIKey)
	assert.Equal(t, "local", cfg.Studio.DefaultOwner)

	assert.NotContains(t, buildInitConfig(""), "sk-")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "genimage 1.2.3\n", out)
}
