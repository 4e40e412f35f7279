package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

func (c *Client) GetData(ctx context.Context) (*model.Document, error) {
	doc := model.NewDocument()

	rows, err := c.db.QueryContext(ctx, `SELECT kind, body FROM records ORDER BY kind, position`)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	defer rows.Close()

	byKind := make(map[model.Kind][]model.Record)
	for rows.Next() {
		var kind string
		var body []byte
		if err := rows.Scan(&kind, &body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var record model.Record
		if err := json.Unmarshal(body, &record); err != nil {
			return nil, fmt.Errorf("unmarshaling %s record: %w", kind, err)
		}
		byKind[model.Kind(kind)] = append(byKind[model.Kind(kind)], record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	for _, kind := range model.Kinds {
		doc.SetRecords(kind, byKind[kind])
	}

	var pending []byte
	var lastSync, lastRefresh sql.NullString
	err = c.db.QueryRowContext(ctx,
		`SELECT pending_changes, last_sync, last_refresh FROM document WHERE id = 1`,
	).Scan(&pending, &lastSync, &lastRefresh)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if err == nil {
		if len(pending) > 0 {
			if err := json.Unmarshal(pending, &doc.PendingChanges); err != nil {
				return nil, fmt.Errorf("unmarshaling pending changes: %w", err)
			}
		}
		doc.LastSync = parseTime(lastSync)
		doc.LastRefresh = parseTime(lastRefresh)
	}

	doc.Normalize()
	return doc, nil
}

func (c *Client) SaveData(ctx context.Context, doc *model.Document) error {
	if doc == nil {
		doc = model.NewDocument()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (kind, position, record_key, name_normalized, body)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for _, kind := range model.Kinds {
		for i, record := range doc.Records(kind) {
			body, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("marshaling %s record %d: %w", kind, i, err)
			}
			nameNormalized := ""
			if kind == model.KindEntity {
				nameNormalized = model.NormalizeName(record.String("name"))
			}
			if _, err := stmt.ExecContext(ctx, string(kind), i, record.Key(), nameNormalized, string(body)); err != nil {
				return fmt.Errorf("inserting %s record %d: %w", kind, i, err)
			}
		}
	}

	pending, err := json.Marshal(doc.PendingChanges)
	if err != nil {
		return fmt.Errorf("marshaling pending changes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO document (id, pending_changes, last_sync, last_refresh, saved_at)
	VALUES (1, ?, ?, ?, datetime('now'))
	ON CONFLICT (id) DO UPDATE SET
		pending_changes = excluded.pending_changes,
		last_sync = excluded.last_sync,
		last_refresh = excluded.last_refresh,
		saved_at = excluded.saved_at
	`, string(pending), formatTime(doc.LastSync), formatTime(doc.LastRefresh))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
