// Package service implements the local mutations of the store: creating
// entities and thoughts, editing relationships and deleting records. Every
// mutation is a single load, change, save sequence that appends to the
// pending-change log and compacts it.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/cascade"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/changelog"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/metrics"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/resolve"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

type Service struct {
	store    store.Store
	identity model.Identity
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(st store.Store, identity model.Identity, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    st,
		identity: identity,
		logger:   logger.Named("service"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type EntityInput struct {
	Name        string
	Category    model.Category
	Description string
	Attributes  []model.Attribute
	Parents     []string
	Links       []string
}

type ThoughtInput struct {
	Content   string
	GameDate  string
	Timestamp time.Time
	Related   []string
}

// session is one read-modify-write of the store.
type session struct {
	doc      *model.Document
	view     *model.View
	resolver *resolve.Resolver
}

func (s *Service) load(ctx context.Context) (*session, error) {
	doc, err := s.store.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	view := model.NewView(doc, nil)
	return &session{
		doc:      doc,
		view:     view,
		resolver: s.resolver(view.Data),
	}, nil
}

func (s *Service) save(ctx context.Context, sess *session) error {
	changelog.CompactAll(&sess.view.Data.PendingChanges)
	if err := sess.view.Apply(sess.doc); err != nil {
		return fmt.Errorf("saving store: %w", err)
	}
	if err := s.store.SaveData(ctx, sess.doc); err != nil {
		return fmt.Errorf("saving store: %w", err)
	}
	return nil
}

func (s *Service) resolver(data *model.Chronicle) *resolve.Resolver {
	return resolve.New(data, s.identity, s.logger,
		resolve.WithClock(s.now),
		resolve.WithIDGenerator(s.newID))
}

// CreateEntity adds a user entity. Relationship names that do not resolve
// get auto-created entities. Names are unique per campaign ignoring case.
func (s *Service) CreateEntity(ctx context.Context, in EntityInput) (*model.Entity, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("create entity: %w: name is required", model.ErrInvalidInput)
	}
	category := in.Category
	if category == "" {
		category = model.CategoryUncategorized
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("create entity: %w: unknown category %q", model.ErrInvalidInput, in.Category)
	}

	sess, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if existing, ok := sess.view.Data.EntityByName(s.identity.CampaignID, name); ok {
		return nil, fmt.Errorf("create entity %q: %w (id %s)", name, model.ErrDuplicateName, existing.Key())
	}

	now := s.now().UTC()
	attributes := in.Attributes
	if attributes == nil {
		attributes = []model.Attribute{}
	}
	entity := model.Entity{
		LocalID:         s.newID(),
		Name:            name,
		Category:        category,
		Description:     in.Description,
		Attributes:      attributes,
		Provenance:      model.ProvenanceUser,
		SyncStatus:      model.SyncPending,
		CampaignID:      s.identity.CampaignID,
		CreatedBy:       s.identity.UserID,
		CreatedLocally:  now,
		ModifiedLocally: now,
	}

	data := sess.view.Data
	data.Entities = append(data.Entities, entity)
	data.PendingChanges.Entities.RecordAdded(entity.LocalID)
	sess.resolver.Invalidate()

	pos := len(data.Entities) - 1
	parents := s.resolveAll(sess.resolver, in.Parents)
	links := s.resolveAll(sess.resolver, in.Links)
	data.Entities[pos].SetParents(parents.WithoutID(entity.LocalID))
	data.Entities[pos].SetLinks(links.WithoutID(entity.LocalID))
	created := data.Entities[pos]

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("entity created",
		zap.String("id", created.LocalID),
		zap.String("name", created.Name),
		zap.String("category", string(created.Category)))
	return &created, nil
}

// SetEntityRelationships replaces the parent and linked entities of the
// entity with id. Both id and name arrays are rewritten.
func (s *Service) SetEntityRelationships(ctx context.Context, id string, parents, links []string) (*model.Entity, error) {
	sess, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	data := sess.view.Data
	if data.EntityIndex(id) < 0 {
		return nil, fmt.Errorf("set relationships for %s: %w", id, model.ErrNotFound)
	}

	parentRefs := s.resolveAll(sess.resolver, parents)
	linkRefs := s.resolveAll(sess.resolver, links)

	// resolving may have appended entities, so look the position up again
	pos := data.EntityIndex(id)
	e := &data.Entities[pos]
	e.SetParents(parentRefs.WithoutID(e.Key()))
	e.SetLinks(linkRefs.WithoutID(e.Key()))
	e.Touch(s.now().UTC())
	data.PendingChanges.Entities.RecordModified(e.Key())
	updated := *e

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateThought adds a thought related to the named entities, creating
// entities for names that do not resolve.
func (s *Service) CreateThought(ctx context.Context, in ThoughtInput) (*model.Thought, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("create thought: %w: content is required", model.ErrInvalidInput)
	}
	sess, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	thought := model.Thought{
		LocalID:         s.newID(),
		Content:         in.Content,
		Timestamp:       timestamp.UTC(),
		GameDate:        in.GameDate,
		CampaignID:      s.identity.CampaignID,
		CreatedBy:       s.identity.UserID,
		SyncStatus:      model.SyncPending,
		ModifiedLocally: now,
	}
	thought.SetRelated(s.resolveAll(sess.resolver, in.Related))

	data := sess.view.Data
	data.Thoughts = append(data.Thoughts, thought)
	data.PendingChanges.Thoughts.RecordAdded(thought.LocalID)

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug("thought created",
		zap.String("id", thought.LocalID),
		zap.Int("related", len(thought.RelatedEntityIDs)))
	return &thought, nil
}

// DeleteEntity removes an entity through the cascade controller. A blocked
// deletion saves nothing and is reported in the result, not as an error.
func (s *Service) DeleteEntity(ctx context.Context, id string, mode cascade.Mode) (*cascade.Result, error) {
	sess, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	controller := cascade.New(s.logger, cascade.WithClock(s.now))
	result, err := controller.DeleteEntity(sess.view.Data, id, mode)
	if err != nil {
		metrics.Deletions.WithLabelValues(string(mode), metrics.ResultFailure).Inc()
		return nil, err
	}
	if !result.Success {
		metrics.Deletions.WithLabelValues(string(mode), "blocked").Inc()
		return result, nil
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	metrics.Deletions.WithLabelValues(string(mode), metrics.ResultSuccess).Inc()
	return result, nil
}

func (s *Service) DeleteThought(ctx context.Context, id string) error {
	sess, err := s.load(ctx)
	if err != nil {
		return err
	}
	controller := cascade.New(s.logger, cascade.WithClock(s.now))
	if _, err := controller.DeleteThought(sess.view.Data, id); err != nil {
		return err
	}
	return s.save(ctx, sess)
}

// ResolveEntity looks a name up in the active campaign without creating
// anything.
func (s *Service) ResolveEntity(ctx context.Context, name string) (*model.Entity, bool, error) {
	sess, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	id, ok := sess.resolver.TryResolve(name)
	if !ok {
		return nil, false, nil
	}
	e, _ := sess.resolver.Entity(id)
	found := *e
	return &found, true, nil
}

// PendingCount compacts the pending-change log, persists the compacted log
// and returns the number of changes awaiting sync.
func (s *Service) PendingCount(ctx context.Context) (int, model.PendingChanges, error) {
	doc, err := s.store.GetData(ctx)
	if err != nil {
		return 0, model.PendingChanges{}, fmt.Errorf("loading store: %w", err)
	}
	if removed := changelog.CompactAll(&doc.PendingChanges); removed > 0 {
		if err := s.store.SaveData(ctx, doc); err != nil {
			return 0, model.PendingChanges{}, fmt.Errorf("saving store: %w", err)
		}
		s.logger.Debug("pending log compacted", zap.Int("removed", removed))
	}
	return doc.PendingChanges.Count(), doc.PendingChanges, nil
}

func (s *Service) resolveAll(r *resolve.Resolver, names []string) model.RefSet {
	refs := model.NewRefSet()
	for _, name := range names {
		id := r.ResolveOrCreate(name)
		if id == "" {
			continue
		}
		canonical, _ := r.NameOf(id)
		refs = refs.With(model.Ref{ID: id, Name: canonical})
	}
	return refs
}
