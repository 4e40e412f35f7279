package cascade

import (
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Drift is a record whose id and name arrays disagree about the entity.
type Drift struct {
	Kind     model.Kind
	RecordID string
	ByID     bool
	ByName   bool
}

// Usage lists the records referencing an entity. Id arrays are authoritative;
// names are consulted only for records with no ids in that relationship.
// Ids match across the store; names match only within the entity's campaign.
type Usage struct {
	Thoughts []string
	Entities []string
	Drift    []Drift
}

func (u Usage) Count() int {
	return len(u.Thoughts) + len(u.Entities)
}

func FindUsage(data *model.Chronicle, target *model.Entity) Usage {
	usage := Usage{Thoughts: []string{}, Entities: []string{}, Drift: []Drift{}}

	for i := range data.Thoughts {
		t := &data.Thoughts[i]
		ref, drift := references(t.RelatedEntityIDs, t.RelatedEntities, t.CampaignID, target)
		if ref {
			usage.Thoughts = append(usage.Thoughts, t.Key())
		}
		if drift != nil {
			drift.Kind, drift.RecordID = model.KindThought, t.Key()
			usage.Drift = append(usage.Drift, *drift)
		}
	}

	for i := range data.Entities {
		e := &data.Entities[i]
		if e.Key() == target.Key() {
			continue
		}
		parentRef, parentDrift := references(e.ParentEntityIDs, e.ParentEntities, e.CampaignID, target)
		linkRef, linkDrift := references(e.LinkedEntityIDs, e.LinkedEntities, e.CampaignID, target)
		if parentRef || linkRef {
			usage.Entities = append(usage.Entities, e.Key())
		}
		for _, d := range []*Drift{parentDrift, linkDrift} {
			if d != nil {
				d.Kind, d.RecordID = model.KindEntity, e.Key()
				usage.Drift = append(usage.Drift, *d)
			}
		}
	}
	return usage
}

// sharesCampaign reports whether a record in campaignID can name target.
// A record or entity without a campaign matches any.
func sharesCampaign(campaignID string, target *model.Entity) bool {
	return campaignID == "" || target.CampaignID == "" || campaignID == target.CampaignID
}

func references(ids, names []string, campaignID string, target *model.Entity) (bool, *Drift) {
	byID := false
	for _, id := range ids {
		if target.HasID(id) {
			byID = true
			break
		}
	}
	byName := false
	if sharesCampaign(campaignID, target) {
		key := model.NormalizeName(target.Name)
		for _, name := range names {
			if model.NormalizeName(name) == key {
				byName = true
				break
			}
		}
	}

	if len(ids) == 0 {
		return byName, nil
	}
	if byID != byName {
		return byID, &Drift{ByID: byID, ByName: byName}
	}
	return byID, nil
}
