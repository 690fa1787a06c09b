package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/pkg/log"
)

// DocumentStore keeps session documents in sqlite. Appends are idempotent on
// (document key, seq), so a queued entry may be flushed more than once.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Append(ctx context.Context, key string, entry core.DocumentEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	query := `INSERT OR IGNORE INTO document_entries (document_key, seq, kind, turn_id, version_id, created_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, key, entry.Seq, entry.Kind, entry.TurnID, entry.VersionID, entry.Timestamp, string(body))
	if err != nil {
		return fmt.Errorf("failed to insert entry %s#%d: %w", key, entry.Seq, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.FromCtx(ctx).Debug().
			Str("document", key).
			Int64("seq", entry.Seq).
			Msg("Entry already stored")
	}
	return nil
}

func (s *DocumentStore) Read(ctx context.Context, key string) ([]core.DocumentEntry, error) {
	query := `SELECT body FROM document_entries WHERE document_key = ? ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.DocumentEntry
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		var entry core.DocumentEntry
		if err := json.Unmarshal([]byte(body), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, key)
	}
	return entries, nil
}

func (s *DocumentStore) Head(ctx context.Context, slotID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT document_id FROM document_heads WHERE slot_id = ?`, slotID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query head of %s: %w", slotID, err)
	}
	return id, nil
}

func (s *DocumentStore) SetHead(ctx context.Context, slotID, documentID string) error {
	query := `INSERT INTO document_heads (slot_id, document_id, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot_id) DO UPDATE SET document_id = excluded.document_id, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, slotID, documentID); err != nil {
		return fmt.Errorf("failed to set head of %s: %w", slotID, err)
	}
	return nil
}
