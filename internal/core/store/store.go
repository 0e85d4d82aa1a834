// Package store persists image history, styles and templates in SQLite,
// either through the pure-Go sqlite driver or through libsql, which also
// reaches remote Turso databases.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/config"
)

const (
	driverLibsql = "libsql"
	driverSQLite = "sqlite"

	memoryPath = ":memory:"
)

var errNotInitialized = errors.New("store is not initialized")

// localPragmas tune file and in-memory databases for one writer.
var localPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// Store implements the history, style and template stores.
type Store struct {
	DB     *sql.DB
	driver string
}

// target is a resolved connection: the sql driver name, its DSN and
// whether the database lives on this machine.
type target struct {
	driver string
	dsn    string
	local  bool
}

// Open connects and pings. Call Migrate before first use.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	t, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(t.driver, t.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", t.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", t.driver, err)
	}
	if t.local {
		if err := tuneLocal(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{DB: db, driver: t.driver}, nil
}

func resolveTarget(cfg config.StoreConfig) (target, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = driverLibsql
	}
	remote := strings.TrimSpace(cfg.URL)
	path := strings.TrimSpace(cfg.Path)

	switch driver {
	case driverLibsql:
		if remote != "" {
			dsn, err := withAuthToken(remote, cfg.AuthToken)
			return target{driver: driver, dsn: dsn}, err
		}
		if strings.HasPrefix(path, "libsql:") {
			return target{driver: driver, dsn: path}, nil
		}
		dsn, err := localDSN(path, "file:")
		return target{driver: driver, dsn: dsn, local: true}, err
	case driverSQLite:
		if remote != "" {
			return target{}, errors.New("sqlite driver does not support remote urls; use libsql")
		}
		dsn, err := localDSN(path, "")
		return target{driver: driver, dsn: dsn, local: true}, err
	default:
		return target{}, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// localDSN accepts :memory:, a file: URI or a plain path, creating the
// parent directory for on-disk databases. Plain paths get filePrefix.
func localDSN(path, filePrefix string) (string, error) {
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == memoryPath:
		return path, nil
	case strings.HasPrefix(path, "file:"):
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid store path: %w", err)
		}
		onDisk := parsed.Path
		if onDisk == "" {
			onDisk = parsed.Opaque
		}
		return path, ensureParentDir(strings.TrimPrefix(onDisk, "//"))
	default:
		clean := filepath.Clean(path)
		return filePrefix + clean, ensureParentDir(clean)
	}
}

func withAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") == "" {
		query.Set("authToken", token)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if path == "" || dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// tuneLocal pins one connection, which also keeps an in-memory database
// alive, and applies localPragmas.
func tuneLocal(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)
	for _, pragma := range localPragmas {
		// Some drivers return a row for PRAGMA, so query rather than exec.
		rows, err := db.QueryContext(ctx, pragma)
		if err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
		_ = rows.Close()
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver names the sql driver in use: sqlite or libsql.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Ping backs the store health check.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	return s.DB.PingContext(ctx)
}
