package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// SaveStyle upserts a style and returns the stored value.
func (s *Store) SaveStyle(ctx context.Context, style core.Style) (core.Style, error) {
	tmpl, err := s.saveNamed(ctx, "styles", core.Template(style))
	return core.Style(tmpl), err
}

// ListStyles returns the owner's styles, newest first.
func (s *Store) ListStyles(ctx context.Context, ownerID string) ([]core.Style, error) {
	styles := []core.Style{}
	err := s.listPayloads(ctx, "styles", ownerID, func(payload string) error {
		var style core.Style
		if err := json.Unmarshal([]byte(payload), &style); err != nil {
			return fmt.Errorf("decode style: %w", err)
		}
		styles = append(styles, style)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return styles, nil
}

// DeleteStyle removes one of the owner's styles.
func (s *Store) DeleteStyle(ctx context.Context, id, ownerID string) error {
	return s.deleteRow(ctx, "styles", id, ownerID)
}

// SaveTemplate upserts a template and returns the stored value.
func (s *Store) SaveTemplate(ctx context.Context, tmpl core.Template) (core.Template, error) {
	return s.saveNamed(ctx, "templates", tmpl)
}

// ListTemplates returns the owner's templates, newest first.
func (s *Store) ListTemplates(ctx context.Context, ownerID string) ([]core.Template, error) {
	templates := []core.Template{}
	err := s.listPayloads(ctx, "templates", ownerID, func(payload string) error {
		var tmpl core.Template
		if err := json.Unmarshal([]byte(payload), &tmpl); err != nil {
			return fmt.Errorf("decode template: %w", err)
		}
		templates = append(templates, tmpl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// DeleteTemplate removes one of the owner's templates.
func (s *Store) DeleteTemplate(ctx context.Context, id, ownerID string) error {
	return s.deleteRow(ctx, "templates", id, ownerID)
}

// saveNamed writes a style or template; both share one row layout.
func (s *Store) saveNamed(ctx context.Context, table string, tmpl core.Template) (core.Template, error) {
	if s == nil || s.DB == nil {
		return core.Template{}, errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tmpl.OwnerID = strings.TrimSpace(tmpl.OwnerID)
	if tmpl.OwnerID == "" {
		return core.Template{}, errdefs.NewValidation("owner_id", "owner is required")
	}
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		return core.Template{}, errdefs.NewValidation("name", "name is required")
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = time.Now().UTC()
	}

	payload, err := encodePayload(schemaStyle, tmpl)
	if err != nil {
		return core.Template{}, err
	}

	// #nosec G201 -- table is one of the fixed entity tables
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, owner_id, name, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			updated_at = excluded.updated_at
		WHERE %[1]s.owner_id = excluded.owner_id
	`, table)

	res, err := s.DB.ExecContext(ctx, query, tmpl.ID, tmpl.OwnerID, tmpl.Name, string(payload),
		tmpl.CreatedAt.UnixMilli(), time.Now().UTC().UnixMilli())
	if err != nil {
		return core.Template{}, fmt.Errorf("store %s: %w", kindOf(table), err)
	}
	if err := requireAffected(res, kindOf(table), tmpl.ID); err != nil {
		return core.Template{}, err
	}

	return tmpl, nil
}

func (s *Store) listPayloads(ctx context.Context, table, ownerID string, decode func(payload string) error) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errdefs.NewValidation("owner_id", "owner is required")
	}

	// #nosec G201 -- table is one of the fixed entity tables
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT payload
		FROM %s
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, table), ownerID)
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("list %s: %w", table, err)
		}
		if err := decode(payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table, id, ownerID string) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return errdefs.NewValidation("id", "id is required")
	}

	// #nosec G201 -- table is one of the fixed entity tables
	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ?`, table),
		id, strings.TrimSpace(ownerID))
	if err != nil {
		return fmt.Errorf("delete %s: %w", kindOf(table), err)
	}
	return requireAffected(res, kindOf(table), id)
}

// requireAffected reports a NotFoundError when a write matched no row. An
// upsert matches nothing when the id belongs to another owner.
func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if n == 0 {
		return errdefs.NewNotFound(kind, id)
	}
	return nil
}

func kindOf(table string) string {
	switch table {
	case "styles":
		return "style"
	case "templates":
		return "template"
	default:
		return table
	}
}
