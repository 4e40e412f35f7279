// Package changelog reduces pending-change logs to their net effect before
// they are counted or synced.
package changelog

import (
	"github.com/samber/lo"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Compact returns the minimal change set equivalent to c:
//
//	added + deleted   -> nothing
//	added + modified  -> added
//	modified + deleted -> deleted
//
// Duplicates collapse to their first occurrence and relative order is kept,
// so compacting a compacted set is a no-op.
func Compact(c model.ChangeSet) model.ChangeSet {
	added := lo.Uniq(c.Added)
	modified := lo.Uniq(c.Modified)
	deleted := lo.Uniq(c.Deleted)

	inAdded := toSet(added)
	inDeleted := toSet(deleted)

	return model.ChangeSet{
		Added: lo.Reject(added, func(id string, _ int) bool {
			return inDeleted[id]
		}),
		Modified: lo.Reject(modified, func(id string, _ int) bool {
			return inAdded[id] || inDeleted[id]
		}),
		Deleted: lo.Reject(deleted, func(id string, _ int) bool {
			return inAdded[id]
		}),
	}
}

// CompactAll compacts every record kind in place and returns how many
// entries were dropped.
func CompactAll(p *model.PendingChanges) int {
	before := p.Count()
	for _, kind := range model.Kinds {
		cs := p.For(kind)
		*cs = Compact(*cs)
	}
	return before - p.Count()
}

// PendingCount compacts p and returns the number of remaining changes.
func PendingCount(p *model.PendingChanges) int {
	CompactAll(p)
	return p.Count()
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
