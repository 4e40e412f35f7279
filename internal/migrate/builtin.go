package migrate

import "github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"

// Default returns the migrations shipped with this build.
func Default() *Registry {
	return MustRegistry(
		Migration{Version: "0.2.0", Name: "add-sync-status", Up: addSyncStatus},
		Migration{Version: "0.3.0", Name: "entity-id-references", Up: entityIDReferences},
		Migration{Version: "0.4.0", Name: "entity-provenance", Up: entityProvenance},
		Migration{Version: "0.5.0", Name: "campaign-member-roles", Up: campaignMemberRoles},
	)
}

// addSyncStatus marks records that already carry a remote id as synced and
// everything else as pending.
func addSyncStatus(doc *model.Document) (*model.Document, error) {
	for _, kind := range []model.Kind{model.KindEntity, model.KindThought} {
		for _, record := range doc.Records(kind) {
			if _, ok := record["syncStatus"]; ok {
				continue
			}
			if record.String("_id") != "" {
				record["syncStatus"] = string(model.SyncSynced)
			} else {
				record["syncStatus"] = string(model.SyncPending)
			}
		}
	}
	return doc, nil
}

// entityIDReferences derives id arrays from the legacy name arrays. Names
// that do not match an entity are left for the reference repair that runs
// after migration.
func entityIDReferences(doc *model.Document) (*model.Document, error) {
	lookup := newNameLookup(doc.Entities)
	fill := func(record model.Record, namesField, idsField string) {
		if ids, ok := record[idsField].([]any); ok && len(ids) > 0 {
			return
		}
		names, _ := record[namesField].([]any)
		ids := make([]any, 0, len(names))
		for _, n := range names {
			name, ok := n.(string)
			if !ok {
				continue
			}
			if id, ok := lookup.resolve(record.String("campaignId"), name); ok && !containsAny(ids, id) {
				ids = append(ids, id)
			}
		}
		record[idsField] = ids
	}

	for _, thought := range doc.Thoughts {
		fill(thought, "relatedEntities", "relatedEntityIds")
	}
	for _, entity := range doc.Entities {
		fill(entity, "parentEntities", "parentEntityIds")
		fill(entity, "linkedEntities", "linkedEntityIds")
	}
	return doc, nil
}

// entityProvenance treats every pre-existing entity as user-created.
func entityProvenance(doc *model.Document) (*model.Document, error) {
	for _, entity := range doc.Entities {
		if p, ok := entity["provenance"].(string); ok && p != "" {
			continue
		}
		entity["provenance"] = string(model.ProvenanceUser)
	}
	return doc, nil
}

// campaignMemberRoles converts plain user id member lists into
// {userId, role} objects and makes sure the owner is listed as owner.
func campaignMemberRoles(doc *model.Document) (*model.Document, error) {
	for _, campaign := range doc.Campaigns {
		owner := campaign.String("owner")
		raw, _ := campaign["members"].([]any)
		members := make([]any, 0, len(raw)+1)
		hasOwner := false

		for _, item := range raw {
			var member map[string]any
			switch v := item.(type) {
			case string:
				member = map[string]any{"userId": v, "role": string(model.RoleMember)}
			case map[string]any:
				member = v
				if _, ok := member["role"].(string); !ok {
					member["role"] = string(model.RoleMember)
				}
			default:
				continue
			}
			if owner != "" && member["userId"] == owner {
				member["role"] = string(model.RoleOwner)
				hasOwner = true
			}
			members = append(members, member)
		}
		if owner != "" && !hasOwner {
			members = append([]any{map[string]any{"userId": owner, "role": string(model.RoleOwner)}}, members...)
		}
		campaign["members"] = members
	}
	return doc, nil
}

// nameLookup maps campaign-scoped lowercase names to record keys. Entities
// without a campaign match any campaign.
type nameLookup struct {
	scoped    map[string]map[string]string
	campaigns []string
	global    map[string]string
}

func newNameLookup(entities []model.Record) *nameLookup {
	l := &nameLookup{
		scoped: make(map[string]map[string]string),
		global: make(map[string]string),
	}
	for _, e := range entities {
		key := model.NormalizeName(e.String("name"))
		id := e.Key()
		if key == "" || id == "" {
			continue
		}
		campaign := e.String("campaignId")
		if campaign == "" {
			if _, ok := l.global[key]; !ok {
				l.global[key] = id
			}
			continue
		}
		names, ok := l.scoped[campaign]
		if !ok {
			names = make(map[string]string)
			l.scoped[campaign] = names
			l.campaigns = append(l.campaigns, campaign)
		}
		if _, ok := names[key]; !ok {
			names[key] = id
		}
	}
	return l
}

func (l *nameLookup) resolve(campaignID, name string) (string, bool) {
	key := model.NormalizeName(name)
	if key == "" {
		return "", false
	}
	if campaignID != "" {
		if id, ok := l.scoped[campaignID][key]; ok {
			return id, true
		}
	} else {
		for _, campaign := range l.campaigns {
			if id, ok := l.scoped[campaign][key]; ok {
				return id, true
			}
		}
	}
	id, ok := l.global[key]
	return id, ok
}

func containsAny(values []any, target string) bool {
	for _, v := range values {
		if s, ok := v.(string); ok && s == target {
			return true
		}
	}
	return false
}
