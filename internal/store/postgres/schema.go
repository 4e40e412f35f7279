package postgres

import (
	"context"
	"fmt"
)

// All statements run in one Exec, which PostgreSQL applies as a single
// implicit transaction.
const ddl = `
CREATE TABLE IF NOT EXISTS records (
    kind            TEXT NOT NULL,
    position        INTEGER NOT NULL,
    record_key      TEXT NOT NULL DEFAULT '',
    name_normalized TEXT NOT NULL DEFAULT '',
    body            JSONB NOT NULL,
    PRIMARY KEY (kind, position)
);

CREATE TABLE IF NOT EXISTS document (
    id              SMALLINT PRIMARY KEY CHECK (id = 1),
    pending_changes JSONB NOT NULL DEFAULT '{}',
    last_sync       TIMESTAMPTZ,
    last_refresh    TIMESTAMPTZ,
    saved_at        TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_kind_key ON records (kind, record_key);
CREATE INDEX IF NOT EXISTS idx_records_kind_name ON records (kind, name_normalized);
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
