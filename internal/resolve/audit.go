package resolve

import (
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Id reference fields, named as they are persisted.
const (
	FieldRelatedIDs = "relatedEntityIds"
	FieldParentIDs  = "parentEntityIds"
	FieldLinkedIDs  = "linkedEntityIds"
)

type InvalidIDs struct {
	Kind     model.Kind
	RecordID string
	Field    string
	IDs      []string
}

type IDAudit struct {
	Records []InvalidIDs
	Total   int
}

func (a *IDAudit) Clean() bool {
	return a.Total == 0
}

// ValidateEntityIDReferences reports ids that no longer resolve to a live
// entity. It does not modify anything.
func ValidateEntityIDReferences(data *model.Chronicle, campaignID string) *IDAudit {
	r := New(data, model.Identity{CampaignID: campaignID}, nil)
	return r.AuditIDs()
}

func (r *Resolver) AuditIDs() *IDAudit {
	audit := &IDAudit{Records: []InvalidIDs{}}
	check := func(kind model.Kind, recordID, field string, ids []string) {
		invalid := model.RefsFromIDs(ids, r).Dangling()
		if len(invalid) == 0 {
			return
		}
		audit.Records = append(audit.Records, InvalidIDs{Kind: kind, RecordID: recordID, Field: field, IDs: invalid})
		audit.Total += len(invalid)
	}

	for i := range r.data.Thoughts {
		t := &r.data.Thoughts[i]
		if r.inScope(t.CampaignID) {
			check(model.KindThought, t.Key(), FieldRelatedIDs, t.RelatedEntityIDs)
		}
	}
	for i := range r.data.Entities {
		e := &r.data.Entities[i]
		if r.inScope(e.CampaignID) {
			check(model.KindEntity, e.Key(), FieldParentIDs, e.ParentEntityIDs)
			check(model.KindEntity, e.Key(), FieldLinkedIDs, e.LinkedEntityIDs)
		}
	}
	return audit
}

// AuditNames reports names that do not resolve, without creating entities.
func (r *Resolver) AuditNames() []OrphanedReferences {
	out := []OrphanedReferences{}
	check := func(kind model.Kind, recordID, field string, names []string) {
		_, unresolved := model.RefsFromNames(names, r)
		if len(unresolved) > 0 {
			out = append(out, OrphanedReferences{Kind: kind, RecordID: recordID, Field: field, Names: unresolved})
		}
	}
	for i := range r.data.Thoughts {
		t := &r.data.Thoughts[i]
		if r.inScope(t.CampaignID) {
			check(model.KindThought, t.Key(), FieldRelated, t.RelatedEntities)
		}
	}
	for i := range r.data.Entities {
		e := &r.data.Entities[i]
		if r.inScope(e.CampaignID) {
			check(model.KindEntity, e.Key(), FieldParents, e.ParentEntities)
			check(model.KindEntity, e.Key(), FieldLinked, e.LinkedEntities)
		}
	}
	return out
}

// Drift describes a record whose name array disagrees with its id array.
// Ids are authoritative; drift is reported, never reconciled here.
type Drift struct {
	Kind     model.Kind
	RecordID string
	Field    string
	// MissingNames are names of live ids absent from the name array.
	MissingNames []string
	// ExtraNames are names with no matching id.
	ExtraNames []string
}

func (r *Resolver) DetectDrift() []Drift {
	out := []Drift{}
	check := func(kind model.Kind, recordID, field string, ids, names []string) {
		if len(ids) == 0 {
			return
		}
		if d, ok := compareRefs(model.RefsFromIDs(ids, r), names); ok {
			d.Kind, d.RecordID, d.Field = kind, recordID, field
			out = append(out, d)
		}
	}
	for i := range r.data.Thoughts {
		t := &r.data.Thoughts[i]
		if r.inScope(t.CampaignID) {
			check(model.KindThought, t.Key(), FieldRelated, t.RelatedEntityIDs, t.RelatedEntities)
		}
	}
	for i := range r.data.Entities {
		e := &r.data.Entities[i]
		if r.inScope(e.CampaignID) {
			check(model.KindEntity, e.Key(), FieldParents, e.ParentEntityIDs, e.ParentEntities)
			check(model.KindEntity, e.Key(), FieldLinked, e.LinkedEntityIDs, e.LinkedEntities)
		}
	}
	return out
}

func compareRefs(refs model.RefSet, names []string) (Drift, bool) {
	d := Drift{MissingNames: []string{}, ExtraNames: []string{}}
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := model.NormalizeName(name)
		if key == "" {
			continue
		}
		present[key] = struct{}{}
		if !refs.ContainsName(name) {
			d.ExtraNames = append(d.ExtraNames, name)
		}
	}
	for _, name := range refs.Names() {
		if _, ok := present[model.NormalizeName(name)]; !ok {
			d.MissingNames = append(d.MissingNames, name)
		}
	}
	return d, len(d.MissingNames) > 0 || len(d.ExtraNames) > 0
}

// DuplicateNames lists entity names that occur more than once within a
// campaign, case-insensitively.
func (r *Resolver) DuplicateNames() []string {
	counts := make(map[string]int)
	for i := range r.data.Entities {
		e := &r.data.Entities[i]
		if r.inScope(e.CampaignID) {
			counts[duplicateKey(e)]++
		}
	}
	out := []string{}
	seen := make(map[string]bool)
	for i := range r.data.Entities {
		e := &r.data.Entities[i]
		if !r.inScope(e.CampaignID) {
			continue
		}
		key := duplicateKey(e)
		if counts[key] > 1 && !seen[key] {
			seen[key] = true
			out = append(out, e.Name)
		}
	}
	return out
}

func duplicateKey(e *model.Entity) string {
	return e.CampaignID + "\x00" + model.NormalizeName(e.Name)
}
