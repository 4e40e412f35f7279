package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/config"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/memory"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/sqlite"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := openStore(ctx, "memory://")
	require.NoError(t, err)
	assert.IsType(t, &memory.Client{}, st)

	st, err = openStore(ctx, "sqlite://"+filepath.Join(t.TempDir(), "chronicle.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Client{}, st)
	require.NoError(t, st.Close(ctx))

	_, err = openStore(ctx, "mongodb://localhost")
	assert.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronicle.yaml")
	require.NoError(t, writeConfig(path, "memory://", "c1", "u1"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory://", cfg.Store.DSN)
	assert.Equal(t, "c1", cfg.Identity.CampaignID)
	assert.Equal(t, "u1", cfg.Identity.UserID)
	assert.Equal(t, "block", cfg.Engine.CascadeMode)

	assert.Error(t, writeConfig(path, "memory://", "c1", "u1"))
}
