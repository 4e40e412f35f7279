// Package backup keeps a single pre-migration snapshot of the store document
// and version ledger.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ledger"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/metrics"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

// ErrNoBackup is returned when the backup slot is empty or unreadable.
var ErrNoBackup = errors.New("no backup available")

// Snapshot is the payload stored in the backup slot. Version is empty when
// the store had no recorded version.
type Snapshot struct {
	Version   string          `json:"version,omitempty"`
	Data      *model.Document `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Vault reads and writes the single backup slot of a store. Each Snapshot
// overwrites the previous one.
type Vault struct {
	store  store.Store
	ledger *ledger.Ledger
	logger *zap.Logger
	now    func() time.Time
}

func New(s store.Store, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{
		store:  s,
		ledger: ledger.New(s),
		logger: logger.Named("backup"),
		now:    time.Now,
	}
}

// Snapshot copies the current document and stored version into the slot.
func (v *Vault) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := v.snapshot(ctx)
	if err != nil {
		metrics.BackupOperations.WithLabelValues("snapshot", metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.BackupOperations.WithLabelValues("snapshot", metrics.ResultSuccess).Inc()
	v.logger.Info("snapshot taken",
		zap.String("version", snap.Version),
		zap.Int("entities", len(snap.Data.Entities)),
		zap.Int("thoughts", len(snap.Data.Thoughts)))
	return snap, nil
}

func (v *Vault) snapshot(ctx context.Context) (*Snapshot, error) {
	doc, err := v.store.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}
	version, ok, err := v.ledger.StoredVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	snap := &Snapshot{Data: doc, CreatedAt: v.now().UTC()}
	if ok {
		snap.Version = version.String()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := v.store.SetValue(ctx, store.KeyBackup, string(payload)); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}

// Restore rewrites the document and stored version from the slot. A snapshot
// taken before any version was recorded clears the version.
func (v *Vault) Restore(ctx context.Context) (*Snapshot, error) {
	snap, err := v.Load(ctx)
	if err != nil {
		metrics.BackupOperations.WithLabelValues("restore", metrics.ResultFailure).Inc()
		return nil, err
	}
	if err := v.restore(ctx, snap); err != nil {
		metrics.BackupOperations.WithLabelValues("restore", metrics.ResultFailure).Inc()
		v.logger.Error("restore failed", zap.Error(err))
		return nil, err
	}
	metrics.BackupOperations.WithLabelValues("restore", metrics.ResultSuccess).Inc()
	v.logger.Info("store restored from snapshot",
		zap.String("version", snap.Version),
		zap.Time("created_at", snap.CreatedAt))
	return snap, nil
}

func (v *Vault) restore(ctx context.Context, snap *Snapshot) error {
	if err := v.store.SaveData(ctx, snap.Data); err != nil {
		return fmt.Errorf("restore store: %w", err)
	}
	if snap.Version == "" {
		return v.ledger.ClearStoredVersion(ctx)
	}
	version, err := ledger.Parse(snap.Version)
	if err != nil {
		return fmt.Errorf("restore version: %w", err)
	}
	return v.ledger.SetStoredVersion(ctx, version)
}

// Load decodes the slot without applying it. Missing or malformed payloads
// return ErrNoBackup.
func (v *Vault) Load(ctx context.Context) (*Snapshot, error) {
	raw, ok, err := v.store.GetValue(ctx, store.KeyBackup)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok || raw == "" {
		return nil, ErrNoBackup
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		v.logger.Warn("ignoring malformed backup payload", zap.Error(err))
		return nil, ErrNoBackup
	}
	if snap.Data == nil {
		return nil, ErrNoBackup
	}
	snap.Data.Normalize()
	return &snap, nil
}

func (v *Vault) HasBackup(ctx context.Context) (bool, error) {
	_, err := v.Load(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoBackup):
		return false, nil
	default:
		return false, err
	}
}
