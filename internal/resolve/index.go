package resolve

import "github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"

// index maps names (per campaign scope) and ids to positions in the entity
// collection. Positions stay valid across appends, which is the only way the
// resolver grows the collection.
type index struct {
	byName map[string]int
	byID   map[string]int
}

func buildIndex(entities []model.Entity, inScope func(campaignID string) bool) *index {
	idx := &index{
		byName: make(map[string]int, len(entities)),
		byID:   make(map[string]int, len(entities)*2),
	}
	for i := range entities {
		idx.add(entities, i, inScope)
	}
	return idx
}

func (idx *index) add(entities []model.Entity, i int, inScope func(campaignID string) bool) {
	e := &entities[i]
	if e.LocalID != "" {
		idx.byID[e.LocalID] = i
	}
	if e.RemoteID != "" {
		idx.byID[e.RemoteID] = i
	}
	if !inScope(e.CampaignID) {
		return
	}
	key := model.NormalizeName(e.Name)
	if key == "" {
		return
	}
	// First entity wins when legacy data holds duplicates; audits report them.
	if _, exists := idx.byName[key]; !exists {
		idx.byName[key] = i
	}
}
