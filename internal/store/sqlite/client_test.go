package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "data", "chronicle.db")
	client, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close(context.Background()) })
	return client
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "memory", input: "sqlite://:memory:", want: ":memory:"},
		{name: "absolute path", input: "sqlite:///var/lib/chronicle.db", want: "/var/lib/chronicle.db"},
		{name: "relative path", input: "sqlite://chronicle.db", want: "./chronicle.db"},
		{name: "dot relative path", input: "sqlite://./data/chronicle.db", want: "./data/chronicle.db"},
		{name: "query string", input: "sqlite://chronicle.db?mode=ro", want: "./chronicle.db?mode=ro"},
		{name: "escaped path", input: "sqlite:///tmp/my%20notes.db", want: "/tmp/my notes.db"},
		{name: "wrong scheme", input: "postgres://localhost/db", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_SaveAndLoadData(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	empty, err := client.GetData(ctx)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.NotNil(t, empty.PendingChanges.Entities.Added)

	synced := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := model.NewDocument()
	doc.Entities = []model.Record{
		{"localId": "local-1", "name": "Aragorn", "category": "character"},
		{"_id": "remote-2", "name": "Rivendell"},
	}
	doc.Thoughts = []model.Record{
		{"localId": "t-1", "content": "met at the inn", "relatedEntities": []any{"Aragorn"}},
	}
	doc.PendingChanges.Entities.Added = []string{"local-1"}
	doc.LastSync = &synced

	require.NoError(t, client.SaveData(ctx, doc))

	loaded, err := client.GetData(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Entities, 2)
	assert.Equal(t, "Aragorn", loaded.Entities[0].String("name"))
	assert.Equal(t, "remote-2", loaded.Entities[1].Key())
	require.Len(t, loaded.Thoughts, 1)
	assert.Equal(t, []any{"Aragorn"}, loaded.Thoughts[0]["relatedEntities"])
	assert.Equal(t, []string{"local-1"}, loaded.PendingChanges.Entities.Added)
	require.NotNil(t, loaded.LastSync)
	assert.True(t, synced.Equal(*loaded.LastSync))
	assert.Nil(t, loaded.LastRefresh)

	doc.Entities = doc.Entities[:1]
	require.NoError(t, client.SaveData(ctx, doc))
	loaded, err = client.GetData(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Entities, 1)
}

func TestClient_KeyValue(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, ok, err := client.GetValue(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SetValue(ctx, "version", "0.2.0"))
	require.NoError(t, client.SetValue(ctx, "version", "0.3.0"))

	value, ok, err := client.GetValue(ctx, "version")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.3.0", value)

	require.NoError(t, client.DeleteValue(ctx, "version"))
	_, ok, err = client.GetValue(ctx, "version")
	require.NoError(t, err)
	assert.False(t, ok)
}
