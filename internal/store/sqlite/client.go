package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Client, error) {
	path, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing sqlite DSN: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection: an in-memory database is per connection, and the
	// engine is a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	c := &Client{db: db}
	if err := c.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close()
}
