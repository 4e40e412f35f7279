package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

// LogEntry is one line of the persisted migration history.
type LogEntry struct {
	Version   string    `json:"version"`
	Migration string    `json:"migration"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// ReadLog returns the migration history, oldest first. A missing or
// unreadable log is empty.
func ReadLog(ctx context.Context, kv store.KV) ([]LogEntry, error) {
	raw, ok, err := kv.GetValue(ctx, store.KeyMigrationLog)
	if err != nil {
		return nil, fmt.Errorf("reading migration log: %w", err)
	}
	entries := []LogEntry{}
	if !ok || raw == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []LogEntry{}, nil
	}
	return entries, nil
}

func appendLog(ctx context.Context, kv store.KV, entries ...LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	existing, err := ReadLog(ctx, kv)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(append(existing, entries...))
	if err != nil {
		return fmt.Errorf("encoding migration log: %w", err)
	}
	if err := kv.SetValue(ctx, store.KeyMigrationLog, string(payload)); err != nil {
		return fmt.Errorf("writing migration log: %w", err)
	}
	return nil
}
