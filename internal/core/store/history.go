package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// SaveHistory upserts a history entry. A missing id or timestamp is filled
// in; the stored entry is returned.
func (s *Store) SaveHistory(ctx context.Context, entry core.HistoryEntry) (core.HistoryEntry, error) {
	if s == nil || s.DB == nil {
		return core.HistoryEntry{}, errNotInitialized
	}

	if ctx == nil {
		ctx = context.Background()
	}

	entry.OwnerID = strings.TrimSpace(entry.OwnerID)
	if entry.OwnerID == "" {
		return core.HistoryEntry{}, errdefs.NewValidation("owner_id", "owner is required")
	}
	if entry.Mode == "" {
		entry.Mode = core.ImageModeNew
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	payload, err := encodePayload(schemaHistory, entry)
	if err != nil {
		return core.HistoryEntry{}, err
	}

	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO history (id, owner_id, prompt, mode, mime_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt = excluded.prompt,
			mode = excluded.mode,
			mime_type = excluded.mime_type,
			payload = excluded.payload
		WHERE history.owner_id = excluded.owner_id
	`, entry.ID, entry.OwnerID, entry.Prompt, string(entry.Mode), entry.MimeType, string(payload), entry.CreatedAt.UnixMilli())
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("store history entry: %w", err)
	}
	if err := requireAffected(res, "history", entry.ID); err != nil {
		return core.HistoryEntry{}, err
	}

	return entry, nil
}

// ListHistory returns the owner's history, newest first.
func (s *Store) ListHistory(ctx context.Context, ownerID string) ([]core.HistoryEntry, error) {
	entries := []core.HistoryEntry{}
	err := s.listPayloads(ctx, "history", ownerID, func(payload string) error {
		var entry core.HistoryEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteHistory removes one of the owner's history entries.
func (s *Store) DeleteHistory(ctx context.Context, id, ownerID string) error {
	return s.deleteRow(ctx, "history", id, ownerID)
}
