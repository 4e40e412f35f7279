package resolve

import (
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Reference fields, named as they are persisted.
const (
	FieldRelated = "relatedEntities"
	FieldParents = "parentEntities"
	FieldLinked  = "linkedEntities"
)

// OrphanedReferences lists the names in one record field that did not
// resolve before repair.
type OrphanedReferences struct {
	Kind     model.Kind
	RecordID string
	Field    string
	Names    []string
}

type RepairReport struct {
	Orphans      []OrphanedReferences
	TotalOrphans int
	Created      []string
}

// ValidateAndRepairEntityReferences resolves every name reference held by
// thoughts and entities of the campaign, creating entities for names that do
// not resolve, and rewrites both reference arrays from the result.
func ValidateAndRepairEntityReferences(data *model.Chronicle, campaignID, userID string, logger *zap.Logger, opts ...Option) *RepairReport {
	r := New(data, model.Identity{CampaignID: campaignID, UserID: userID}, logger, opts...)
	return r.RepairReferences()
}

func (r *Resolver) RepairReferences() *RepairReport {
	report := &RepairReport{Orphans: []OrphanedReferences{}}
	createdBefore := len(r.created)

	record := func(kind model.Kind, id, field string, orphans []string) {
		if len(orphans) == 0 {
			return
		}
		report.Orphans = append(report.Orphans, OrphanedReferences{
			Kind:     kind,
			RecordID: id,
			Field:    field,
			Names:    orphans,
		})
		report.TotalOrphans += len(orphans)
	}

	for i := range r.data.Thoughts {
		t := &r.data.Thoughts[i]
		if !r.inScope(t.CampaignID) {
			continue
		}
		refs, orphans := r.repairRefs(t.RelatedEntityIDs, t.RelatedEntities)
		t.SetRelated(refs)
		record(model.KindThought, t.Key(), FieldRelated, orphans)
	}

	// Repairs append to the entity collection, so entities are addressed by
	// position and only the original ones are walked.
	n := len(r.data.Entities)
	for i := 0; i < n; i++ {
		if !r.inScope(r.data.Entities[i].CampaignID) {
			continue
		}
		parents, parentOrphans := r.repairRefs(r.data.Entities[i].ParentEntityIDs, r.data.Entities[i].ParentEntities)
		links, linkOrphans := r.repairRefs(r.data.Entities[i].LinkedEntityIDs, r.data.Entities[i].LinkedEntities)

		e := &r.data.Entities[i]
		e.SetParents(parents)
		e.SetLinks(links)
		record(model.KindEntity, e.Key(), FieldParents, parentOrphans)
		record(model.KindEntity, e.Key(), FieldLinked, linkOrphans)
	}

	report.Created = append([]string{}, r.created[createdBefore:]...)
	if report.TotalOrphans > 0 {
		r.logger.Info("repaired entity references",
			zap.Int("orphans", report.TotalOrphans),
			zap.Int("created", len(report.Created)))
	}
	return report
}

// repairRefs starts from the id array, which is authoritative, and adds every
// name that is not already represented. Names that do not resolve are
// returned as orphans after an entity has been created for them.
func (r *Resolver) repairRefs(ids, names []string) (model.RefSet, []string) {
	refs := model.RefsFromIDs(ids, r)
	orphans := []string{}
	for _, name := range names {
		if model.NormalizeName(name) == "" || refs.ContainsName(name) {
			continue
		}
		id, ok := r.TryResolve(name)
		if !ok {
			orphans = append(orphans, name)
			id = r.ResolveOrCreate(name)
		}
		canonical, _ := r.NameOf(id)
		refs = refs.With(model.Ref{ID: id, Name: canonical})
	}
	return refs, orphans
}
