package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

// Ledger records which schema version the local store is at.
type Ledger struct {
	kv store.KV
}

func New(kv store.KV) *Ledger {
	return &Ledger{kv: kv}
}

// StoredVersion returns false when no version has been recorded, which means
// a fresh install.
func (l *Ledger) StoredVersion(ctx context.Context) (Version, bool, error) {
	raw, ok, err := l.kv.GetValue(ctx, store.KeyVersion)
	if err != nil {
		return Version{}, false, fmt.Errorf("reading stored version: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Version{}, false, nil
	}
	v, err := Parse(raw)
	if err != nil {
		return Version{}, false, fmt.Errorf("reading stored version: %w", err)
	}
	return v, true, nil
}

func (l *Ledger) SetStoredVersion(ctx context.Context, v Version) error {
	if err := l.kv.SetValue(ctx, store.KeyVersion, v.String()); err != nil {
		return fmt.Errorf("writing stored version: %w", err)
	}
	return nil
}

func (l *Ledger) ClearStoredVersion(ctx context.Context) error {
	if err := l.kv.DeleteValue(ctx, store.KeyVersion); err != nil {
		return fmt.Errorf("clearing stored version: %w", err)
	}
	return nil
}
