package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (c *Client) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting value %s: %w", key, err)
	}
	return value, true, nil
}

func (c *Client) SetValue(ctx context.Context, key, value string) error {
	_, err := c.pool.Exec(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`, key, value)
	if err != nil {
		return fmt.Errorf("setting value %s: %w", key, err)
	}
	return nil
}

func (c *Client) DeleteValue(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting value %s: %w", key, err)
	}
	return nil
}
