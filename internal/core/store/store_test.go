package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

func TestResolveTargetLibsql(t *testing.T) {
	cases := []struct {
		name  string
		cfg   config.StoreConfig
		dsn   string
		local bool
	}{
		{
			name: "remote url gains auth token",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io", AuthToken: "token123"},
			dsn:  "libsql://example.turso.io?authToken=token123",
		},
		{
			name: "existing query is kept",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io?foo=bar", AuthToken: "token123"},
			dsn:  "libsql://example.turso.io?authToken=token123&foo=bar",
		},
		{
			name: "libsql path is remote",
			cfg:  config.StoreConfig{Path: "libsql://db.example"},
			dsn:  "libsql://db.example",
		},
		{
			name:  "file uri passes through",
			cfg:   config.StoreConfig{Path: "file:./genimage.db"},
			dsn:   "file:./genimage.db",
			local: true,
		},
		{
			name:  "memory",
			cfg:   config.StoreConfig{Path: ":memory:"},
			dsn:   ":memory:",
			local: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveTarget(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, driverLibsql, got.driver)
			assert.Equal(t, tc.dsn, got.dsn)
			assert.Equal(t, tc.local, got.local)
		})
	}

	t.Run("plain path creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "genimage.db")
		got, err := resolveTarget(config.StoreConfig{Path: path})
		require.NoError(t, err)
		assert.Equal(t, "file:"+path, got.dsn)
		assert.DirExists(t, filepath.Dir(path))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := resolveTarget(config.StoreConfig{})
		require.Error(t, err)
	})
}

func TestResolveTargetSQLite(t *testing.T) {
	got, err := resolveTarget(config.StoreConfig{Driver: "SQLite", Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, target{driver: driverSQLite, dsn: ":memory:", local: true}, got)

	path := filepath.Join(t.TempDir(), "genimage.db")
	got, err = resolveTarget(config.StoreConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, got.dsn)

	_, err = resolveTarget(config.StoreConfig{Driver: "sqlite", URL: "libsql://example.turso.io"})
	require.ErrorContains(t, err, "use libsql")

	_, err = resolveTarget(config.StoreConfig{Driver: "sqlite"})
	require.Error(t, err)
}

func TestMigrateRecordsVersions(t *testing.T) {
	store := openSQLite(t)

	version, err := store.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, version)

	var applied int
	require.NoError(t, store.DB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported store driver")
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Equal(t, "", s.Driver())
	require.Error(t, s.Migrate(context.Background()))

	_, err := s.ListStyles(context.Background(), "owner")
	require.Error(t, err)
}

// openSQLite opens a migrated pure-Go store; it needs no cgo.
func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "genimage.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrations are idempotent")
	return store
}

func TestSQLiteHistoryCRUD(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	require.Equal(t, "sqlite", store.Driver())
	require.NoError(t, store.Ping(ctx))

	doc, err := document.Parse([]byte(`{"subject":{"description":"a cat"}}`))
	require.NoError(t, err)

	older, err := store.SaveHistory(ctx, core.HistoryEntry{
		OwnerID:    "alice",
		Prompt:     "a cat",
		Base64Data: "aGVsbG8=",
		MimeType:   "image/png",
		Document:   doc,
		CreatedAt:  time.Now().Add(-time.Minute).UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, older.ID)
	require.Equal(t, core.ImageModeNew, older.Mode)

	newer, err := store.SaveHistory(ctx, core.HistoryEntry{
		OwnerID:    "alice",
		Prompt:     "a dog",
		Mode:       core.ImageModeEdit,
		Base64Data: "d29ybGQ=",
	})
	require.NoError(t, err)

	_, err = store.SaveHistory(ctx, core.HistoryEntry{OwnerID: "bob", Prompt: "x", Base64Data: "eA=="})
	require.NoError(t, err)

	entries, err := store.ListHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, older.ID, entries[1].ID)
	require.NotNil(t, entries[1].Document)
	raw, err := entries[1].Document.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"subject":{"description":"a cat"}}`, string(raw))

	err = store.DeleteHistory(ctx, older.ID, "bob")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	require.NoError(t, store.DeleteHistory(ctx, older.ID, "alice"))
	entries, err = store.ListHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSQLiteHistoryValidation(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	_, err := store.SaveHistory(ctx, core.HistoryEntry{Prompt: "a cat", Base64Data: "eA=="})
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))

	_, err = store.SaveHistory(ctx, core.HistoryEntry{OwnerID: "alice", Prompt: "a cat"})
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err), "schema requires image data")

	_, err = store.ListHistory(ctx, " ")
	require.Error(t, err)
}

func TestSQLiteStyleUpsertAndOwnership(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	saved, err := store.SaveStyle(ctx, core.Style{OwnerID: "alice", Name: " watercolor ", Prompt: "soft watercolor"})
	require.NoError(t, err)
	require.Equal(t, "watercolor", saved.Name)

	saved.Prompt = "bold watercolor"
	updated, err := store.SaveStyle(ctx, saved)
	require.NoError(t, err)
	require.Equal(t, saved.ID, updated.ID)

	styles, err := store.ListStyles(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.Equal(t, "bold watercolor", styles[0].Prompt)
	assert.WithinDuration(t, saved.CreatedAt, styles[0].CreatedAt, time.Millisecond)

	hijack := saved
	hijack.OwnerID = "mallory"
	_, err = store.SaveStyle(ctx, hijack)
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	_, err = store.SaveStyle(ctx, core.Style{OwnerID: "alice", Name: "empty"})
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err), "style needs a prompt or document")

	err = store.DeleteStyle(ctx, "missing", "alice")
	assert.True(t, errdefs.IsNotFound(err))
	require.NoError(t, store.DeleteStyle(ctx, saved.ID, "alice"))
}

func TestSQLiteTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	doc, err := document.Parse([]byte(`{"format":{"aspectRatio":"16:9"},"mood":"calm"}`))
	require.NoError(t, err)

	saved, err := store.SaveTemplate(ctx, core.Template{
		OwnerID:  "alice",
		Name:     "poster",
		Document: doc,
		Options:  map[string][]string{"mood": {"calm", "eerie"}},
	})
	require.NoError(t, err)

	templates, err := store.ListTemplates(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, templates, 1)

	got := templates[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, []string{"calm", "eerie"}, got.Options["mood"])
	assert.Equal(t, []string{"format", "mood"}, got.Document.Keys())

	empty, err := store.ListTemplates(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	require.NoError(t, store.DeleteTemplate(ctx, saved.ID, "alice"))
	assert.True(t, errdefs.IsNotFound(store.DeleteTemplate(ctx, saved.ID, "alice")))
}
