package cascade

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/changelog"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// Mode is the policy applied to records that still reference a deleted entity.
type Mode string

const (
	// ModeOrphan deletes the entity and leaves references dangling.
	ModeOrphan Mode = "orphan"
	// ModeBlock refuses to delete a referenced entity.
	ModeBlock Mode = "block"
	// ModeRemove deletes the entity and strips every reference to it.
	ModeRemove Mode = "remove"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOrphan, ModeBlock, ModeRemove:
		return m, nil
	default:
		return "", fmt.Errorf("unknown cascade mode: %q", s)
	}
}

// Result describes a deletion. A blocked deletion has Success false and a
// Reason; it is an expected outcome, not an error.
type Result struct {
	Success          bool
	Mode             Mode
	EntityID         string
	EntityName       string
	AffectedThoughts int
	AffectedEntities int
	Reason           string
	Drift            []Drift
}

type Controller struct {
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{logger: logger.Named("cascade"), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeleteEntity removes the entity addressed by local or remote id under mode.
// An unknown id returns model.ErrNotFound and changes nothing.
func (c *Controller) DeleteEntity(data *model.Chronicle, id string, mode Mode) (*Result, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	pos := data.EntityIndex(id)
	if pos < 0 {
		return nil, fmt.Errorf("delete entity %s: %w", id, model.ErrNotFound)
	}
	target := data.Entities[pos]
	usage := FindUsage(data, &target)

	result := &Result{
		Mode:             mode,
		EntityID:         target.Key(),
		EntityName:       target.Name,
		AffectedThoughts: len(usage.Thoughts),
		AffectedEntities: len(usage.Entities),
		Drift:            usage.Drift,
	}

	logger := c.logger.With(
		zap.String("entity_id", target.Key()),
		zap.String("entity_name", target.Name),
		zap.String("mode", string(mode)))
	if len(usage.Drift) > 0 {
		logger.Warn("reference arrays disagree for deleted entity", zap.Int("records", len(usage.Drift)))
	}

	if mode == ModeBlock && usage.Count() > 0 {
		result.Reason = fmt.Sprintf("%q is referenced by %d thought(s) and %d entit(ies)",
			target.Name, result.AffectedThoughts, result.AffectedEntities)
		logger.Info("entity deletion blocked",
			zap.Int("thoughts", result.AffectedThoughts),
			zap.Int("entities", result.AffectedEntities))
		return result, nil
	}

	data.Entities = slices.Delete(data.Entities, pos, pos+1)
	data.PendingChanges.Entities.RecordDeleted(target.Key())

	if mode != ModeOrphan {
		thoughts, entities := c.stripReferences(data, &target)
		result.AffectedThoughts = thoughts
		result.AffectedEntities = entities
	}
	changelog.CompactAll(&data.PendingChanges)

	result.Success = true
	logger.Info("entity deleted",
		zap.Int("thoughts", result.AffectedThoughts),
		zap.Int("entities", result.AffectedEntities))
	return result, nil
}

// DeleteThought removes the thought addressed by local or remote id and
// records the deletion. Nothing references a thought, so no mode applies.
// An unknown id returns model.ErrNotFound and changes nothing.
func (c *Controller) DeleteThought(data *model.Chronicle, id string) (string, error) {
	pos := data.ThoughtIndex(id)
	if pos < 0 {
		return "", fmt.Errorf("delete thought %s: %w", id, model.ErrNotFound)
	}
	key := data.Thoughts[pos].Key()
	data.Thoughts = slices.Delete(data.Thoughts, pos, pos+1)
	data.PendingChanges.Thoughts.RecordDeleted(key)
	changelog.CompactAll(&data.PendingChanges)

	c.logger.Info("thought deleted", zap.String("thought_id", key))
	return key, nil
}

// stripReferences removes the entity's ids and name from every reference
// array. Id and name forms are filtered independently since either may be
// stale. Names are only stripped from records in the entity's campaign.
// Touched records are marked pending.
func (c *Controller) stripReferences(data *model.Chronicle, target *model.Entity) (int, int) {
	now := c.now().UTC()
	thoughts, entities := 0, 0

	for i := range data.Thoughts {
		t := &data.Thoughts[i]
		ids, idHit := withoutIDs(t.RelatedEntityIDs, target)
		names, nameHit := withoutName(t.RelatedEntities, t.CampaignID, target)
		if !idHit && !nameHit {
			continue
		}
		t.RelatedEntityIDs, t.RelatedEntities = ids, names
		t.Touch(now)
		data.PendingChanges.Thoughts.RecordModified(t.Key())
		thoughts++
	}

	for i := range data.Entities {
		e := &data.Entities[i]
		parentIDs, parentIDHit := withoutIDs(e.ParentEntityIDs, target)
		parents, parentHit := withoutName(e.ParentEntities, e.CampaignID, target)
		linkedIDs, linkedIDHit := withoutIDs(e.LinkedEntityIDs, target)
		linked, linkedHit := withoutName(e.LinkedEntities, e.CampaignID, target)
		if !parentIDHit && !parentHit && !linkedIDHit && !linkedHit {
			continue
		}
		e.ParentEntityIDs, e.ParentEntities = parentIDs, parents
		e.LinkedEntityIDs, e.LinkedEntities = linkedIDs, linked
		e.Touch(now)
		data.PendingChanges.Entities.RecordModified(e.Key())
		entities++
	}
	return thoughts, entities
}

func withoutIDs(ids []string, target *model.Entity) ([]string, bool) {
	out := lo.Reject(ids, func(id string, _ int) bool { return target.HasID(id) })
	return out, len(out) != len(ids)
}

func withoutName(names []string, campaignID string, target *model.Entity) ([]string, bool) {
	if !sharesCampaign(campaignID, target) {
		return names, false
	}
	key := model.NormalizeName(target.Name)
	out := lo.Reject(names, func(n string, _ int) bool { return model.NormalizeName(n) == key })
	return out, len(out) != len(names)
}
