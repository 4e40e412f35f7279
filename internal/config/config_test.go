package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		path := writeTempConfig(t, `store:
  dsn: sqlite://./chronicle.db
identity:
  campaign_id: camp-1
  user_id: user-1
engine:
  cascade_mode: Remove
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "sqlite://./chronicle.db", cfg.Store.DSN)
		assert.Equal(t, "camp-1", cfg.Identity.CampaignID)
		assert.Equal(t, "remove", cfg.Engine.CascadeMode)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "sqlite://~/.thought-chronicle/chronicle.db", cfg.Store.DSN)
		assert.Equal(t, "local", cfg.Identity.UserID)
		assert.Equal(t, "block", cfg.Engine.CascadeMode)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("CHRONICLE_DSN", "memory://")
		path := writeTempConfig(t, "store:\n  dsn: sqlite://./chronicle.db\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "memory://", cfg.Store.DSN)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		path := writeTempConfig(t, "store:\n  dsn: mysql://localhost/db\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid cascade mode", func(t *testing.T) {
		path := writeTempConfig(t, "engine:\n  cascade_mode: shred\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid target version", func(t *testing.T) {
		path := writeTempConfig(t, "engine:\n  target_version: one.two\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "store: [\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestStoreScheme(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "sqlite://chronicle.db", want: "sqlite"},
		{dsn: "postgres://localhost/chronicle", want: "postgres"},
		{dsn: "postgresql://localhost/chronicle", want: "postgres"},
		{dsn: "memory://", want: "memory"},
		{dsn: "chronicle.db", wantErr: true},
		{dsn: "redis://localhost", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := StoreScheme(tt.dsn)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chronicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
