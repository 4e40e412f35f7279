package resolve

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("auto-%d", n)
	})
}

func testOptions() []Option {
	return []Option{sequentialIDs(), WithClock(func() time.Time { return fixedNow })}
}

func entity(localID, remoteID, name string) model.Entity {
	return model.Entity{
		LocalID:    localID,
		RemoteID:   remoteID,
		Name:       name,
		Category:   model.CategoryCharacter,
		Provenance: model.ProvenanceUser,
		SyncStatus: model.SyncSynced,
		CampaignID: "camp-1",
	}
}

func thought(id string, names ...string) model.Thought {
	return model.Thought{
		LocalID:          id,
		Content:          "entry " + id,
		RelatedEntities:  names,
		RelatedEntityIDs: []string{},
		CampaignID:       "camp-1",
	}
}

func newResolver(data *model.Chronicle) *Resolver {
	return New(data, model.Identity{CampaignID: "camp-1", UserID: "user-1"}, nil, testOptions()...)
}

func TestTryResolve(t *testing.T) {
	data := &model.Chronicle{Entities: []model.Entity{
		entity("local-1", "remote-1", "Aragorn"),
		entity("", "remote-2", "Rivendell"),
	}}
	r := newResolver(data)

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{name: "exact match prefers local id", input: "Aragorn", wantID: "local-1", wantOK: true},
		{name: "case-insensitive", input: "ARAGORN", wantID: "local-1", wantOK: true},
		{name: "surrounding whitespace", input: "  aragorn ", wantID: "local-1", wantOK: true},
		{name: "remote id only", input: "rivendell", wantID: "remote-2", wantOK: true},
		{name: "unknown", input: "Mordor", wantOK: false},
		{name: "blank", input: "   ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := r.TryResolve(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}

	assert.Len(t, data.Entities, 2, "lookups must not create entities")
	assert.Empty(t, r.Created())
}

func TestResolveOrCreate(t *testing.T) {
	data := &model.Chronicle{
		Entities:       []model.Entity{entity("local-1", "", "Aragorn")},
		PendingChanges: model.NewPendingChanges(),
	}
	r := newResolver(data)

	assert.Equal(t, "local-1", r.ResolveOrCreate("aragorn"))
	require.Len(t, data.Entities, 1)

	id := r.ResolveOrCreate("Gandalf")
	assert.Equal(t, "auto-1", id)
	require.Len(t, data.Entities, 2)

	created := data.Entities[1]
	assert.Equal(t, "Gandalf", created.Name)
	assert.Equal(t, model.CategoryUncategorized, created.Category)
	assert.Equal(t, model.ProvenanceAuto, created.Provenance)
	assert.Equal(t, model.SyncPending, created.SyncStatus)
	assert.Equal(t, "camp-1", created.CampaignID)
	assert.Equal(t, "user-1", created.CreatedBy)
	assert.Equal(t, fixedNow, created.CreatedLocally)
	assert.NotNil(t, created.ParentEntityIDs)

	assert.Equal(t, id, r.ResolveOrCreate("GANDALF"), "second mention must not create a duplicate")
	assert.Len(t, data.Entities, 2)
	assert.Equal(t, []string{"Gandalf"}, r.Created())
	assert.Equal(t, []string{"auto-1"}, data.PendingChanges.Entities.Added)
}

func TestResolverScopesNamesToCampaign(t *testing.T) {
	other := entity("other-1", "", "Aragorn")
	other.CampaignID = "camp-2"
	data := &model.Chronicle{Entities: []model.Entity{other}}
	r := newResolver(data)

	_, ok := r.TryResolve("Aragorn")
	assert.False(t, ok)

	name, ok := r.NameOf("other-1")
	assert.True(t, ok, "ids resolve across campaigns")
	assert.Equal(t, "Aragorn", name)
}

func TestRoundTrip(t *testing.T) {
	data := &model.Chronicle{Entities: []model.Entity{
		entity("a", "", "Aragorn"),
		entity("", "b", "Boromir"),
		entity("c", "c-remote", "Celeborn"),
	}}
	r := newResolver(data)

	names := []string{"Aragorn", "Boromir", "Celeborn"}
	ids, unresolved := r.NamesToIDs(names)
	require.Empty(t, unresolved)
	back, dangling := r.IDsToNames(ids)
	require.Empty(t, dangling)
	assert.ElementsMatch(t, names, back)

	startIDs := []string{"c-remote", "a", "b"}
	gotNames, _ := r.IDsToNames(startIDs)
	gotIDs, _ := r.NamesToIDs(gotNames)
	assert.ElementsMatch(t, []string{"c", "a", "b"}, gotIDs, "remote ids come back as the preferred local id")
	for _, id := range gotIDs {
		e, ok := r.Entity(id)
		require.True(t, ok)
		assert.True(t, e.HasID(id))
	}
}

func TestRepairReferences_CaseInsensitiveMatch(t *testing.T) {
	data := &model.Chronicle{
		Entities:       []model.Entity{entity("a", "", "ARAGORN")},
		Thoughts:       []model.Thought{thought("t1", "aragorn")},
		PendingChanges: model.NewPendingChanges(),
	}

	report := ValidateAndRepairEntityReferences(data, "camp-1", "user-1", nil, testOptions()...)

	assert.Zero(t, report.TotalOrphans)
	assert.Empty(t, report.Created)
	assert.Len(t, data.Entities, 1)
	assert.Equal(t, []string{"a"}, data.Thoughts[0].RelatedEntityIDs)
	assert.Equal(t, []string{"ARAGORN"}, data.Thoughts[0].RelatedEntities)
}

func TestRepairReferences_AutoRepairCompleteness(t *testing.T) {
	data := &model.Chronicle{
		Entities: []model.Entity{entity("a", "", "Aragorn")},
		Thoughts: []model.Thought{
			thought("t1", "Gandalf", "Aragorn"),
			thought("t2", "gandalf", "Shire"),
			thought("t3", "SHIRE", "Moria", "Gandalf"),
		},
		PendingChanges: model.NewPendingChanges(),
	}
	parent := entity("b", "", "Boromir")
	parent.ParentEntities = []string{"Gondor"}
	parent.ParentEntityIDs = []string{}
	data.Entities = append(data.Entities, parent)

	report := ValidateAndRepairEntityReferences(data, "camp-1", "user-1", nil, testOptions()...)

	assert.ElementsMatch(t, []string{"Gandalf", "Shire", "Moria", "Gondor"}, report.Created)
	assert.Len(t, data.Entities, 6)
	assert.Equal(t, 4, report.TotalOrphans, "later mentions of a created name resolve")

	auto := 0
	for _, e := range data.Entities {
		if e.Provenance == model.ProvenanceAuto {
			auto++
			assert.Equal(t, model.CategoryUncategorized, e.Category)
		}
	}
	assert.Equal(t, 4, auto)

	for _, th := range data.Thoughts {
		assert.Len(t, th.RelatedEntityIDs, len(th.RelatedEntities))
	}
	assert.Equal(t, []string{"Gondor"}, data.Entities[1].ParentEntities)
	assert.Len(t, data.Entities[1].ParentEntityIDs, 1)

	r := newResolver(data)
	assert.Empty(t, r.AuditNames())
	assert.True(t, r.AuditIDs().Clean())
	assert.Empty(t, r.DetectDrift())

	again := ValidateAndRepairEntityReferences(data, "camp-1", "user-1", nil, testOptions()...)
	assert.Zero(t, again.TotalOrphans)
	assert.Empty(t, again.Created)
	assert.Len(t, data.Entities, 6)
}

func TestRepairReferences_KeepsDanglingIDs(t *testing.T) {
	th := thought("t1")
	th.RelatedEntityIDs = []string{"gone", "a"}
	th.RelatedEntities = []string{"Aragorn"}
	data := &model.Chronicle{
		Entities:       []model.Entity{entity("a", "", "Aragorn")},
		Thoughts:       []model.Thought{th},
		PendingChanges: model.NewPendingChanges(),
	}

	report := ValidateAndRepairEntityReferences(data, "camp-1", "user-1", nil, testOptions()...)
	assert.Zero(t, report.TotalOrphans)
	assert.Equal(t, []string{"gone", "a"}, data.Thoughts[0].RelatedEntityIDs)
	assert.Equal(t, []string{"Aragorn"}, data.Thoughts[0].RelatedEntities)

	audit := ValidateEntityIDReferences(data, "camp-1")
	require.Len(t, audit.Records, 1)
	assert.Equal(t, []string{"gone"}, audit.Records[0].IDs)
	assert.Equal(t, FieldRelatedIDs, audit.Records[0].Field)
}

func TestValidateEntityIDReferences_ReadOnly(t *testing.T) {
	e := entity("a", "", "Aragorn")
	e.LinkedEntityIDs = []string{"missing-1", "missing-2"}
	th := thought("t1")
	th.RelatedEntityIDs = []string{"a", "missing-3"}
	data := &model.Chronicle{
		Entities: []model.Entity{e},
		Thoughts: []model.Thought{th},
	}

	audit := ValidateEntityIDReferences(data, "")

	assert.Equal(t, 3, audit.Total)
	assert.Len(t, audit.Records, 2)
	assert.Equal(t, []string{"a", "missing-3"}, data.Thoughts[0].RelatedEntityIDs)
	assert.Len(t, data.Entities, 1)
}

func TestDetectDrift(t *testing.T) {
	th := thought("t1", "Aragorn", "Legolas")
	th.RelatedEntityIDs = []string{"a", "b"}
	data := &model.Chronicle{
		Entities: []model.Entity{entity("a", "", "Aragorn"), entity("b", "", "Boromir")},
		Thoughts: []model.Thought{th, thought("t2", "Aragorn")},
	}

	drift := newResolver(data).DetectDrift()

	require.Len(t, drift, 1)
	assert.Equal(t, "t1", drift[0].RecordID)
	assert.Equal(t, []string{"Boromir"}, drift[0].MissingNames)
	assert.Equal(t, []string{"Legolas"}, drift[0].ExtraNames)
}

func TestDuplicateNames(t *testing.T) {
	data := &model.Chronicle{Entities: []model.Entity{
		entity("a", "", "Aragorn"),
		entity("b", "", "aragorn"),
		entity("c", "", "Boromir"),
	}}
	assert.Equal(t, []string{"Aragorn"}, newResolver(data).DuplicateNames())
}
