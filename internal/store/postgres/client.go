package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	c := &Client{pool: pool}
	if err := c.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}
