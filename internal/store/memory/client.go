package memory

import (
	"context"
	"sync"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

var _ store.Store = (*Client)(nil)

// Client keeps the document and key/value area in process. Every read and
// write copies so callers never share state with the store.
type Client struct {
	mu     sync.Mutex
	doc    *model.Document
	values map[string]string
}

func New() *Client {
	return &Client{
		doc:    model.NewDocument(),
		values: make(map[string]string),
	}
}

func (c *Client) Close(ctx context.Context) error { return nil }

func (c *Client) EnsureSchema(ctx context.Context) error { return nil }

func (c *Client) GetData(ctx context.Context) (*model.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := c.doc.Clone()
	doc.Normalize()
	return doc, nil
}

func (c *Client) SaveData(ctx context.Context, doc *model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc == nil {
		doc = model.NewDocument()
	}
	c.doc = doc.Clone()
	c.doc.Normalize()
	return nil
}

func (c *Client) GetValue(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *Client) SetValue(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *Client) DeleteValue(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}
