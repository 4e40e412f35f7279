package mcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/service"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/memory"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

var identity = model.Identity{CampaignID: "c1", UserID: "u1"}

func newTestServer(t *testing.T) (*Server, *memory.Client) {
	t.Helper()
	n := 0
	st := memory.New()
	svc := service.New(st, identity, nil,
		service.WithClock(func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }),
		service.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}))
	return NewServer(svc, st, nil, identity, "test", nil), st
}

// seed creates Gandalf (id-1) linked to an auto-created Frodo (id-2) and a
// thought (id-3) about Gandalf.
func seed(t *testing.T, server *Server) {
	t.Helper()
	ctx := context.Background()
	_, err := server.service.CreateEntity(ctx, service.EntityInput{
		Name:       "Gandalf",
		Category:   model.CategoryCharacter,
		Attributes: []model.Attribute{{Key: "color", Value: "grey"}},
		Links:      []string{"Frodo"},
	})
	require.NoError(t, err)
	_, err = server.service.CreateThought(ctx, service.ThoughtInput{Content: "You shall not pass", Related: []string{"Gandalf"}})
	require.NoError(t, err)
}

func TestResolveEntity(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)

	_, output, err := server.handleResolveEntity(context.Background(), nil, ResolveEntityInput{Name: "GANDALF"})
	require.NoError(t, err)
	require.True(t, output.Found)
	require.NotNil(t, output.Entity)
	assert.Equal(t, "id-1", output.Entity.ID)
	assert.Equal(t, "Gandalf", output.Entity.Name)
	assert.Equal(t, "character", output.Entity.Category)
	assert.Equal(t, []string{"Frodo"}, output.Entity.LinkedEntities)
	assert.Equal(t, map[string]string{"color": "grey"}, output.Entity.Attributes)
	assert.Equal(t, "user", output.Entity.Provenance)
}

func TestResolveEntity_NotFound(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)

	_, output, err := server.handleResolveEntity(context.Background(), nil, ResolveEntityInput{Name: "Sauron"})
	require.NoError(t, err)
	assert.False(t, output.Found)
	assert.Nil(t, output.Entity)
}

func TestResolveEntity_RequiresName(t *testing.T) {
	server, _ := newTestServer(t)

	_, _, err := server.handleResolveEntity(context.Background(), nil, ResolveEntityInput{Name: "  "})
	assert.Error(t, err)
}

func TestDeleteEntity_BlockedByDefault(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)

	_, output, err := server.handleDeleteEntity(context.Background(), nil, DeleteEntityInput{ID: "id-1"})
	require.NoError(t, err)
	assert.False(t, output.Deleted)
	assert.Equal(t, "block", output.Mode)
	assert.Equal(t, 1, output.AffectedThoughts)
	assert.Equal(t, 0, output.AffectedEntities)
	assert.NotEmpty(t, output.Reason)

	_, resolved, err := server.handleResolveEntity(context.Background(), nil, ResolveEntityInput{Name: "Gandalf"})
	require.NoError(t, err)
	assert.True(t, resolved.Found)
}

func TestDeleteEntity_Remove(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)

	_, output, err := server.handleDeleteEntity(context.Background(), nil, DeleteEntityInput{ID: "id-1", Mode: "REMOVE"})
	require.NoError(t, err)
	assert.True(t, output.Deleted)
	assert.Equal(t, "Gandalf", output.EntityName)
	assert.Equal(t, 1, output.AffectedThoughts)

	_, resolved, err := server.handleResolveEntity(context.Background(), nil, ResolveEntityInput{Name: "Gandalf"})
	require.NoError(t, err)
	assert.False(t, resolved.Found)
}

func TestDeleteEntity_Errors(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)
	ctx := context.Background()

	_, _, err := server.handleDeleteEntity(ctx, nil, DeleteEntityInput{})
	assert.Error(t, err)

	_, _, err = server.handleDeleteEntity(ctx, nil, DeleteEntityInput{ID: "id-1", Mode: "shred"})
	assert.Error(t, err)

	_, _, err = server.handleDeleteEntity(ctx, nil, DeleteEntityInput{ID: "missing"})
	assert.ErrorContains(t, err, "entity not found")
}

func TestPendingChanges(t *testing.T) {
	server, _ := newTestServer(t)
	seed(t, server)

	_, output, err := server.handlePendingChanges(context.Background(), nil, PendingChangesInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, output.Total)
	assert.Equal(t, []string{"id-1", "id-2"}, output.Entities.Added)
	assert.Equal(t, []string{"id-3"}, output.Thoughts.Added)
	assert.Equal(t, []string{}, output.Campaigns.Added)
}

func TestAuditStore(t *testing.T) {
	server, st := newTestServer(t)
	doc := model.NewDocument()
	doc.Entities = []model.Record{
		{"localId": "e1", "name": "Gandalf", "category": "character", "campaignId": "c1"},
	}
	doc.Thoughts = []model.Record{
		{"localId": "t1", "content": "Fly, you fools", "campaignId": "c1",
			"relatedEntityIds": []any{"e1", "ghost"}, "relatedEntities": []any{"Gandalf"}},
	}
	require.NoError(t, st.SaveData(context.Background(), doc))

	_, output, err := server.handleAuditStore(context.Background(), nil, AuditStoreInput{})
	require.NoError(t, err)
	assert.False(t, output.Clean)
	assert.Positive(t, output.Errors)
	assert.Positive(t, output.Warnings)
	assert.Len(t, output.Issues, output.Errors+output.Warnings)

	_, errorsOnly, err := server.handleAuditStore(context.Background(), nil, AuditStoreInput{Severity: "error"})
	require.NoError(t, err)
	require.NotEmpty(t, errorsOnly.Issues)
	codes := make([]string, 0, len(errorsOnly.Issues))
	for _, issue := range errorsOnly.Issues {
		assert.Equal(t, string(validate.SeverityError), issue.Severity)
		codes = append(codes, issue.Code)
	}
	assert.Contains(t, codes, "orphaned_id")

	stored, err := st.GetData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc, stored)
}

func TestAuditStore_UnknownSeverity(t *testing.T) {
	server, _ := newTestServer(t)

	_, _, err := server.handleAuditStore(context.Background(), nil, AuditStoreInput{Severity: "fatal"})
	assert.Error(t, err)
}

func TestGetSchema(t *testing.T) {
	server, _ := newTestServer(t)

	_, output, err := server.handleGetSchema(context.Background(), nil, GetSchemaInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, output.Version)

	names := make([]string, 0, len(output.RecordTypes))
	for _, rt := range output.RecordTypes {
		names = append(names, rt.Name)
	}
	assert.Equal(t, []string{"campaign", "entity", "thought"}, names)
}
