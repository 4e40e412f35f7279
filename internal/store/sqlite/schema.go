package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
CREATE TABLE IF NOT EXISTS records (
	kind            TEXT NOT NULL,
	position        INTEGER NOT NULL,
	record_key      TEXT NOT NULL DEFAULT '',
	name_normalized TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL,
	PRIMARY KEY (kind, position)
);

CREATE TABLE IF NOT EXISTS document (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	pending_changes TEXT NOT NULL DEFAULT '{}',
	last_sync       TEXT,
	last_refresh    TEXT,
	saved_at        TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_records_kind_key ON records (kind, record_key);
CREATE INDEX IF NOT EXISTS idx_records_kind_name ON records (kind, name_normalized);
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
