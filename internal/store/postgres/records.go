package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

func (c *Client) GetData(ctx context.Context) (*model.Document, error) {
	doc := model.NewDocument()

	rows, err := c.pool.Query(ctx, `SELECT kind, body FROM records ORDER BY kind, position`)
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
	var lastSync, lastRefresh *time.Time
	err = c.pool.QueryRow(ctx,
		`SELECT pending_changes, last_sync, last_refresh FROM document WHERE id = 1`,
	).Scan(&pending, &lastSync, &lastRefresh)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	if err == nil {
		if len(pending) > 0 {
			if err := json.Unmarshal(pending, &doc.PendingChanges); err != nil {
				return nil, fmt.Errorf("unmarshaling pending changes: %w", err)
			}
		}
		doc.LastSync = lastSync
		doc.LastRefresh = lastRefresh
	}

	doc.Normalize()
	return doc, nil
}

func (c *Client) SaveData(ctx context.Context, doc *model.Document) error {
	if doc == nil {
		doc = model.NewDocument()
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	batch := &pgx.Batch{}
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
			batch.Queue(`
INSERT INTO records (kind, position, record_key, name_normalized, body)
VALUES ($1, $2, $3, $4, $5)
`, string(kind), i, record.Key(), nameNormalized, body)
		}
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting records: %w", err)
		}
	}

	pending, err := json.Marshal(doc.PendingChanges)
	if err != nil {
		return fmt.Errorf("marshaling pending changes: %w", err)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO document (id, pending_changes, last_sync, last_refresh, saved_at)
VALUES (1, $1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET
    pending_changes = EXCLUDED.pending_changes,
    last_sync = EXCLUDED.last_sync,
    last_refresh = EXCLUDED.last_refresh,
    saved_at = EXCLUDED.saved_at
`, pending, doc.LastSync, doc.LastRefresh)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}
