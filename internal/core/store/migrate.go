package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one forward-only schema step, applied in a transaction and
// recorded in schema_migrations.
type migration struct {
	version    int
	statements []string
}

// ownedTable is the shape shared by every owner-scoped entity table.
func ownedTable(name string, extra string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			%s
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`, name, extra),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_owner ON %[1]s(owner_id, created_at)`, name),
	}
}

var migrations = []migration{
	{version: 1, statements: concat(
		ownedTable("history", "prompt TEXT NOT NULL,\n\t\t\tmode TEXT NOT NULL,"),
		ownedTable("styles", "name TEXT NOT NULL,"),
		ownedTable("templates", "name TEXT NOT NULL,"),
	)},
	{version: 2, statements: []string{
		`ALTER TABLE history ADD COLUMN mime_type TEXT`,
		`ALTER TABLE styles ADD COLUMN updated_at INTEGER`,
		`ALTER TABLE templates ADD COLUMN updated_at INTEGER`,
	}},
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Migrate applies pending migrations. It is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("store migration %d failed: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.DB.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().UTC().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}
