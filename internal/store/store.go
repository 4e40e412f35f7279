package store

import (
	"context"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Well-known keys in the key/value area of a store.
const (
	KeyVersion      = "thought-chronicle:version"
	KeyMigrationLog = "thought-chronicle:migration-log"
	KeyBackup       = "thought-chronicle:backup"
)

// KV is a flat string key/value area alongside the record document.
type KV interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// Store persists the record document. Callers assume exclusive access for the
// duration of one read-modify-write sequence.
type Store interface {
	KV

	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	GetData(ctx context.Context) (*model.Document, error)
	SaveData(ctx context.Context, doc *model.Document) error
}
