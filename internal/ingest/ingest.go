// Package ingest turns markdown notes into thought records. Related entity
// names are stored as written; ids are filled in by the next validation pass.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/changelog"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/metrics"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/parser"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
)

// Fields stamped on imported thoughts so a re-import updates instead of
// duplicating.
const (
	FieldSourceFile = "sourceFile"
	FieldSourceHash = "sourceHash"
)

// Outcome label values for metrics.NotesImported.
const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

type Result struct {
	Created      int
	Updated      int
	FilesSkipped int
	Errors       []error
}

type Options struct {
	Roots   []string
	Exclude []string
	// Full re-imports notes whose content hash is unchanged.
	Full bool
	// DryRun reports what would change without saving.
	DryRun bool
}

type Importer struct {
	store    store.Store
	identity model.Identity
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Importer)

func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(im *Importer) { im.newID = newID }
}

func New(st store.Store, identity model.Identity, logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &Importer{
		store:    st,
		identity: identity,
		logger:   logger.Named("ingest"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) Run(ctx context.Context, options Options) (*Result, error) {
	doc, err := im.store.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	files, err := walkMarkdownFiles(options.Roots, options.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking note files: %w", err)
	}

	bySource := make(map[string]int)
	for i, rec := range doc.Thoughts {
		if src := rec.String(FieldSourceFile); src != "" {
			bySource[src] = i
		}
	}

	result := &Result{Errors: []error{}}
	now := im.now().UTC()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		source, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("resolving %s: %w", path, err))
			metrics.NotesImported.WithLabelValues(outcomeFailed).Inc()
			continue
		}

		hash, err := computeHash(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
			metrics.NotesImported.WithLabelValues(outcomeFailed).Inc()
			continue
		}

		i, exists := bySource[source]
		if exists && !options.Full && doc.Thoughts[i].String(FieldSourceHash) == hash {
			result.FilesSkipped++
			metrics.NotesImported.WithLabelValues(outcomeSkipped).Inc()
			continue
		}

		note, err := parser.ParseFile(path)
		if err != nil {
			if errors.Is(err, parser.ErrEmptyNote) {
				result.FilesSkipped++
				metrics.NotesImported.WithLabelValues(outcomeSkipped).Inc()
				continue
			}
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			metrics.NotesImported.WithLabelValues(outcomeFailed).Inc()
			continue
		}

		if exists {
			im.update(doc, i, note, hash, now)
			result.Updated++
			metrics.NotesImported.WithLabelValues(outcomeUpdated).Inc()
			im.logger.Debug("note updated", zap.String("file", source))
			continue
		}

		rec := im.record(note, source, hash, now)
		doc.Thoughts = append(doc.Thoughts, rec)
		bySource[source] = len(doc.Thoughts) - 1
		doc.PendingChanges.Thoughts.RecordAdded(rec.Key())
		result.Created++
		metrics.NotesImported.WithLabelValues(outcomeCreated).Inc()
		im.logger.Debug("note imported", zap.String("file", source), zap.String("id", rec.Key()))
	}

	if options.DryRun || result.Created+result.Updated == 0 {
		return result, nil
	}

	changelog.CompactAll(&doc.PendingChanges)
	if err := im.store.SaveData(ctx, doc); err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}

	im.logger.Info("notes imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (im *Importer) record(note *parser.Note, source, hash string, now time.Time) model.Record {
	campaignID := note.CampaignID
	if campaignID == "" {
		campaignID = im.identity.CampaignID
	}
	timestamp := note.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	return model.Record{
		"localId":          im.newID(),
		"content":          note.Content(),
		"timestamp":        timestamp.Format(time.RFC3339Nano),
		"gameDate":         note.GameDate,
		"relatedEntityIds": []any{},
		"relatedEntities":  toAny(note.Related),
		"campaignId":       campaignID,
		"createdBy":        im.identity.UserID,
		"syncStatus":       string(model.SyncPending),
		"modifiedLocally":  now.Format(time.RFC3339Nano),
		FieldSourceFile:    source,
		FieldSourceHash:    hash,
	}
}

// update rewrites an imported thought from its changed note. Ids are cleared
// so the next repair rebuilds them from the note's names.
func (im *Importer) update(doc *model.Document, i int, note *parser.Note, hash string, now time.Time) {
	rec := doc.Thoughts[i]
	rec["content"] = note.Content()
	rec["gameDate"] = note.GameDate
	if !note.Timestamp.IsZero() {
		rec["timestamp"] = note.Timestamp.Format(time.RFC3339Nano)
	}
	if note.CampaignID != "" {
		rec["campaignId"] = note.CampaignID
	}
	rec["relatedEntities"] = toAny(note.Related)
	rec["relatedEntityIds"] = []any{}
	rec["syncStatus"] = string(model.SyncPending)
	rec["modifiedLocally"] = now.Format(time.RFC3339Nano)
	rec[FieldSourceHash] = hash
	doc.PendingChanges.Thoughts.RecordModified(rec.Key())
}

func walkMarkdownFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
