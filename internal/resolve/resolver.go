package resolve

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

var _ model.EntityLookup = (*Resolver)(nil)

// Resolver converts between entity names and ids within one campaign. Name
// matching is case-insensitive. Lookups never mutate; ResolveOrCreate heals a
// missing name by creating an entity.
type Resolver struct {
	data     *model.Chronicle
	identity model.Identity
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	idx     *index
	created []string
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Resolver) { r.newID = newID }
}

// New scopes a resolver to identity.CampaignID. An empty campaign id matches
// every campaign.
func New(data *model.Chronicle, identity model.Identity, logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		data:     data,
		identity: identity,
		logger:   logger.Named("resolver"),
		now:      time.Now,
		newID:    uuid.NewString,
		created:  []string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invalidate drops the derived index. Call it after changing the entity
// collection outside the resolver.
func (r *Resolver) Invalidate() {
	r.idx = nil
}

func (r *Resolver) inScope(campaignID string) bool {
	return r.identity.CampaignID == "" || campaignID == "" || campaignID == r.identity.CampaignID
}

func (r *Resolver) index() *index {
	if r.idx == nil {
		r.idx = buildIndex(r.data.Entities, r.inScope)
	}
	return r.idx
}

// TryResolve returns the id for name without side effects.
func (r *Resolver) TryResolve(name string) (string, bool) {
	key := model.NormalizeName(name)
	if key == "" {
		return "", false
	}
	i, ok := r.index().byName[key]
	if !ok {
		return "", false
	}
	return r.data.Entities[i].Key(), true
}

// ResolveOrCreate returns the id for name, creating an uncategorized entity
// with auto provenance when nothing matches.
func (r *Resolver) ResolveOrCreate(name string) string {
	if id, ok := r.TryResolve(name); ok {
		return id
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	idx := r.index()
	now := r.now().UTC()
	entity := model.Entity{
		LocalID:         r.newID(),
		Name:            trimmed,
		Category:        model.CategoryUncategorized,
		Attributes:      []model.Attribute{},
		ParentEntityIDs: []string{},
		LinkedEntityIDs: []string{},
		ParentEntities:  []string{},
		LinkedEntities:  []string{},
		Provenance:      model.ProvenanceAuto,
		SyncStatus:      model.SyncPending,
		CampaignID:      r.identity.CampaignID,
		CreatedBy:       r.identity.UserID,
		CreatedLocally:  now,
		ModifiedLocally: now,
	}
	r.data.Entities = append(r.data.Entities, entity)
	idx.add(r.data.Entities, len(r.data.Entities)-1, r.inScope)
	r.data.PendingChanges.Entities.RecordAdded(entity.LocalID)
	r.created = append(r.created, trimmed)

	r.logger.Info("auto-created entity for dangling reference",
		zap.String("name", trimmed),
		zap.String("id", entity.LocalID),
		zap.String("campaign_id", r.identity.CampaignID))
	return entity.LocalID
}

// Created lists names auto-created by this resolver, in creation order.
func (r *Resolver) Created() []string {
	return append([]string{}, r.created...)
}

func (r *Resolver) IDOf(name string) (string, bool) {
	return r.TryResolve(name)
}

// NameOf returns the current name of the entity with local or remote id.
func (r *Resolver) NameOf(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	i, ok := r.index().byID[id]
	if !ok {
		return "", false
	}
	return r.data.Entities[i].Name, true
}

// Entity returns the entity with local or remote id. The pointer is only
// valid until the collection next grows.
func (r *Resolver) Entity(id string) (*model.Entity, bool) {
	i, ok := r.index().byID[id]
	if !ok {
		return nil, false
	}
	return &r.data.Entities[i], true
}

// NamesToIDs resolves names without creating anything. Unresolved names are
// returned separately.
func (r *Resolver) NamesToIDs(names []string) ([]string, []string) {
	refs, unresolved := model.RefsFromNames(names, r)
	return refs.IDs(), unresolved
}

// IDsToNames maps ids to current names. Ids that do not resolve are returned
// separately.
func (r *Resolver) IDsToNames(ids []string) ([]string, []string) {
	refs := model.RefsFromIDs(ids, r)
	return refs.Names(), refs.Dangling()
}
