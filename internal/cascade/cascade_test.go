package cascade

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// fixture builds a store where Gandalf (local g, remote g-remote) is
// referenced by two thoughts and one entity.
func fixture() *model.Chronicle {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Chronicle{
		Entities: []model.Entity{
			{LocalID: "g", RemoteID: "g-remote", Name: "Gandalf", SyncStatus: model.SyncSynced},
			{LocalID: "f", Name: "Frodo", SyncStatus: model.SyncSynced, ModifiedLocally: old,
				ParentEntityIDs: []string{}, ParentEntities: []string{},
				LinkedEntityIDs: []string{"g-remote", "s"}, LinkedEntities: []string{"Gandalf", "Sam"}},
			{LocalID: "s", Name: "Sam", SyncStatus: model.SyncSynced,
				LinkedEntityIDs: []string{"f"}, LinkedEntities: []string{"Frodo"}},
		},
		Thoughts: []model.Thought{
			{LocalID: "t1", RelatedEntityIDs: []string{"g"}, RelatedEntities: []string{"Gandalf"}, SyncStatus: model.SyncSynced, ModifiedLocally: old},
			{LocalID: "t2", RelatedEntityIDs: []string{"g", "f"}, RelatedEntities: []string{"gandalf", "Frodo"}, SyncStatus: model.SyncSynced},
			{LocalID: "t3", RelatedEntityIDs: []string{"s"}, RelatedEntities: []string{"Sam"}, SyncStatus: model.SyncSynced},
		},
		PendingChanges: model.NewPendingChanges(),
	}
}

func newController() *Controller {
	return New(nil, WithClock(func() time.Time { return fixedNow }))
}

func TestDeleteEntity_Block(t *testing.T) {
	data := fixture()
	before := fixture()

	result, err := newController().DeleteEntity(data, "g", ModeBlock)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.AffectedThoughts)
	assert.Equal(t, 1, result.AffectedEntities)
	assert.Contains(t, result.Reason, "Gandalf")
	assert.Equal(t, before, data, "blocked deletion must not change anything")
}

func TestDeleteEntity_BlockWithoutReferences(t *testing.T) {
	data := fixture()
	data.Entities = append(data.Entities, model.Entity{LocalID: "lonely", Name: "Tom Bombadil"})

	result, err := newController().DeleteEntity(data, "lonely", ModeBlock)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.AffectedThoughts)
	assert.Zero(t, result.AffectedEntities)
	assert.Equal(t, -1, data.EntityIndex("lonely"))
}

func TestDeleteEntity_Orphan(t *testing.T) {
	data := fixture()

	result, err := newController().DeleteEntity(data, "g-remote", ModeOrphan)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AffectedThoughts)
	assert.Equal(t, 1, result.AffectedEntities)
	assert.Equal(t, -1, data.EntityIndex("g"))
	assert.Len(t, data.Entities, 2)

	assert.Equal(t, []string{"g"}, data.Thoughts[0].RelatedEntityIDs)
	assert.Equal(t, []string{"Gandalf"}, data.Thoughts[0].RelatedEntities)
	assert.Equal(t, model.SyncSynced, data.Thoughts[0].SyncStatus)
	assert.Equal(t, []string{"g-remote", "s"}, data.Entities[0].LinkedEntityIDs)
	assert.Equal(t, []string{"g"}, data.PendingChanges.Entities.Deleted)
}

func TestDeleteEntity_Remove(t *testing.T) {
	data := fixture()

	result, err := newController().DeleteEntity(data, "g", ModeRemove)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AffectedThoughts)
	assert.Equal(t, 1, result.AffectedEntities)

	for _, th := range data.Thoughts {
		assert.NotContains(t, th.RelatedEntityIDs, "g")
		for _, name := range th.RelatedEntities {
			assert.NotEqual(t, "gandalf", model.NormalizeName(name))
		}
	}
	frodo := data.Entities[data.EntityIndex("f")]
	assert.Equal(t, []string{"s"}, frodo.LinkedEntityIDs)
	assert.Equal(t, []string{"Sam"}, frodo.LinkedEntities)
	assert.Equal(t, model.SyncPending, frodo.SyncStatus)
	assert.Equal(t, fixedNow, frodo.ModifiedLocally)

	assert.Equal(t, model.SyncPending, data.Thoughts[0].SyncStatus)
	assert.Equal(t, fixedNow, data.Thoughts[0].ModifiedLocally)
	assert.Equal(t, model.SyncSynced, data.Thoughts[2].SyncStatus, "untouched thought keeps its status")

	assert.Equal(t, []string{"t1", "t2"}, data.PendingChanges.Thoughts.Modified)
	assert.Equal(t, []string{"f"}, data.PendingChanges.Entities.Modified)
	assert.Equal(t, []string{"g"}, data.PendingChanges.Entities.Deleted)
}

func TestDeleteEntity_RemoveStripsStaleNames(t *testing.T) {
	data := fixture()
	data.Thoughts[2].RelatedEntities = append(data.Thoughts[2].RelatedEntities, "Gandalf")

	result, err := newController().DeleteEntity(data, "g", ModeRemove)
	require.NoError(t, err)

	assert.Equal(t, 3, result.AffectedThoughts)
	require.Len(t, result.Drift, 1)
	assert.Equal(t, "t3", result.Drift[0].RecordID)
	assert.False(t, result.Drift[0].ByID)
	assert.True(t, result.Drift[0].ByName)
	assert.Equal(t, []string{"Sam"}, data.Thoughts[2].RelatedEntities)
	assert.Equal(t, []string{"s"}, data.Thoughts[2].RelatedEntityIDs)
}

func TestDeleteEntity_BlockCountsIDsWhenArraysDrift(t *testing.T) {
	data := fixture()
	data.Thoughts[2].RelatedEntities = append(data.Thoughts[2].RelatedEntities, "Gandalf")

	result, err := newController().DeleteEntity(data, "g", ModeBlock)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.AffectedThoughts, "stale names do not count when ids are present")
	assert.Len(t, result.Drift, 1)
}

func TestDeleteEntity_NameOnlyLegacyReferences(t *testing.T) {
	data := fixture()
	data.Thoughts = append(data.Thoughts, model.Thought{LocalID: "t4", RelatedEntities: []string{"GANDALF"}})

	result, err := newController().DeleteEntity(data, "g", ModeBlock)
	require.NoError(t, err)
	assert.Equal(t, 3, result.AffectedThoughts)
	assert.Empty(t, result.Drift)
}

// twoCampaigns holds an Aragorn in each of campaigns a and b. Campaign b's
// records refer to their own Aragorn, one by id and one by name only.
func twoCampaigns() *model.Chronicle {
	return &model.Chronicle{
		Entities: []model.Entity{
			{LocalID: "a-aragorn", Name: "Aragorn", CampaignID: "a", SyncStatus: model.SyncSynced},
			{LocalID: "b-aragorn", Name: "Aragorn", CampaignID: "b", SyncStatus: model.SyncSynced},
			{LocalID: "b-arwen", Name: "Arwen", CampaignID: "b", SyncStatus: model.SyncSynced,
				LinkedEntities: []string{"Aragorn"}},
		},
		Thoughts: []model.Thought{
			{LocalID: "b-t1", CampaignID: "b", SyncStatus: model.SyncSynced,
				RelatedEntityIDs: []string{"b-aragorn"}, RelatedEntities: []string{"Aragorn"}},
			{LocalID: "a-t1", CampaignID: "a", SyncStatus: model.SyncSynced,
				RelatedEntityIDs: []string{"a-aragorn"}, RelatedEntities: []string{"Aragorn"}},
		},
		PendingChanges: model.NewPendingChanges(),
	}
}

func TestDeleteEntity_RemoveLeavesOtherCampaignNames(t *testing.T) {
	data := twoCampaigns()

	result, err := newController().DeleteEntity(data, "a-aragorn", ModeRemove)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AffectedThoughts)
	assert.Zero(t, result.AffectedEntities)
	assert.Empty(t, result.Drift)

	other := data.Thoughts[data.ThoughtIndex("b-t1")]
	assert.Equal(t, []string{"b-aragorn"}, other.RelatedEntityIDs)
	assert.Equal(t, []string{"Aragorn"}, other.RelatedEntities)
	assert.Equal(t, model.SyncSynced, other.SyncStatus)

	arwen := data.Entities[data.EntityIndex("b-arwen")]
	assert.Equal(t, []string{"Aragorn"}, arwen.LinkedEntities)

	own := data.Thoughts[data.ThoughtIndex("a-t1")]
	assert.Empty(t, own.RelatedEntityIDs)
	assert.Empty(t, own.RelatedEntities)
	assert.Equal(t, []string{"a-t1"}, data.PendingChanges.Thoughts.Modified)
	assert.Empty(t, data.PendingChanges.Entities.Modified)
}

func TestDeleteEntity_BlockIgnoresOtherCampaignNames(t *testing.T) {
	data := twoCampaigns()
	data.Thoughts = data.Thoughts[:1]

	result, err := newController().DeleteEntity(data, "a-aragorn", ModeBlock)
	require.NoError(t, err)

	assert.True(t, result.Success, "campaign b's name-only reference is to its own Aragorn")
	assert.Zero(t, result.AffectedThoughts)
	assert.Zero(t, result.AffectedEntities)
}

func TestDeleteEntity_NamesWithoutCampaignMatchAnywhere(t *testing.T) {
	data := twoCampaigns()
	data.Thoughts = append(data.Thoughts, model.Thought{LocalID: "loose", RelatedEntities: []string{"aragorn"}})

	result, err := newController().DeleteEntity(data, "a-aragorn", ModeBlock)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.AffectedThoughts)
}

func TestDeleteThought(t *testing.T) {
	data := fixture()

	key, err := newController().DeleteThought(data, "t2")
	require.NoError(t, err)

	assert.Equal(t, "t2", key)
	assert.Equal(t, -1, data.ThoughtIndex("t2"))
	require.Len(t, data.Thoughts, 2)
	assert.Equal(t, "t1", data.Thoughts[0].Key())
	assert.Equal(t, "t3", data.Thoughts[1].Key())
	assert.Equal(t, []string{"t2"}, data.PendingChanges.Thoughts.Deleted)
	assert.Len(t, data.Entities, 3, "entities are untouched")
}

func TestDeleteThought_NeverSyncedLeavesNoTrace(t *testing.T) {
	data := fixture()
	data.Thoughts = append(data.Thoughts, model.Thought{LocalID: "draft"})
	data.PendingChanges.Thoughts.Added = []string{"draft"}

	_, err := newController().DeleteThought(data, "draft")
	require.NoError(t, err)

	assert.Empty(t, data.PendingChanges.Thoughts.Added)
	assert.Empty(t, data.PendingChanges.Thoughts.Deleted)
}

func TestDeleteThought_NotFound(t *testing.T) {
	data := fixture()
	before := fixture()

	_, err := newController().DeleteThought(data, "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, before, data)
}

func TestDeleteEntity_NotFound(t *testing.T) {
	data := fixture()
	before := fixture()

	_, err := newController().DeleteEntity(data, "nobody", ModeRemove)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Equal(t, before, data)
}

func TestDeleteEntity_AutoCreatedNeverSynced(t *testing.T) {
	data := fixture()
	data.Entities = append(data.Entities, model.Entity{LocalID: "auto-1", Name: "Moria", Provenance: model.ProvenanceAuto})
	data.PendingChanges.Entities.Added = []string{"auto-1"}

	_, err := newController().DeleteEntity(data, "auto-1", ModeRemove)
	require.NoError(t, err)

	assert.Empty(t, data.PendingChanges.Entities.Added)
	assert.Empty(t, data.PendingChanges.Entities.Deleted)
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"orphan", "BLOCK", " remove "} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseMode("shred")
	assert.Error(t, err)
}
