package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (c *Client) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting value %s: %w", key, err)
	}
	return value, true, nil
}

func (c *Client) SetValue(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting value %s: %w", key, err)
	}
	return nil
}

func (c *Client) DeleteValue(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting value %s: %w", key, err)
	}
	return nil
}
