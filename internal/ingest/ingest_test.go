package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/migrate"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/resolve"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store/memory"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func clock() time.Time { return fixedNow }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var identity = model.Identity{CampaignID: "c1", UserID: "u1"}

func newImporter(s *memory.Client) *Importer {
	return New(s, identity, nil, WithClock(clock), WithIDGenerator(sequentialIDs("note")))
}

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func notesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeNote(t, dir, "session-1.md", "---\nrelated: [Gandalf, Moria]\ngame_date: 3019-01-15\ntimestamp: 2025-01-01T20:00:00Z\n---\nThe doors of Durin.\n")
	writeNote(t, dir, "ideas/loose.md", "Sam should get a garden.\n")
	writeNote(t, dir, "drafts/wip.md", "Not ready yet.\n")
	writeNote(t, dir, "empty.md", "---\nrelated: [Gandalf]\n---\n")
	writeNote(t, dir, "readme.txt", "not a note")
	return dir
}

func thoughtBySource(t *testing.T, doc *model.Document, path string) model.Record {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	for _, rec := range doc.Thoughts {
		if rec.String(FieldSourceFile) == abs {
			return rec
		}
	}
	t.Fatalf("no thought imported from %s", path)
	return nil
}

func TestRun_ImportsNotes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := notesDir(t)

	result, err := newImporter(s).Run(ctx, Options{
		Roots:   []string{dir},
		Exclude: []string{filepath.Join(dir, "drafts")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Empty(t, result.Errors)

	doc, err := s.GetData(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Thoughts, 2)

	session := thoughtBySource(t, doc, filepath.Join(dir, "session-1.md"))
	assert.Equal(t, "The doors of Durin.", session["content"])
	assert.Equal(t, []any{"Gandalf", "Moria"}, session["relatedEntities"])
	assert.Equal(t, []any{}, session["relatedEntityIds"])
	assert.Equal(t, "3019-01-15", session["gameDate"])
	assert.Equal(t, "2025-01-01T20:00:00Z", session["timestamp"])
	assert.Equal(t, "c1", session["campaignId"])
	assert.Equal(t, "u1", session["createdBy"])
	assert.Equal(t, "pending", session["syncStatus"])
	assert.NotEmpty(t, session[FieldSourceHash])

	loose := thoughtBySource(t, doc, filepath.Join(dir, "ideas", "loose.md"))
	assert.Equal(t, "Sam should get a garden.", loose["content"])
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), loose["timestamp"])

	assert.ElementsMatch(t, []string{"note-1", "note-2"}, doc.PendingChanges.Thoughts.Added)
}

func TestRun_UnchangedNotesAreSkipped(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := notesDir(t)
	options := Options{Roots: []string{dir}}

	_, err := newImporter(s).Run(ctx, options)
	require.NoError(t, err)

	result, err := newImporter(s).Run(ctx, options)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 4, result.FilesSkipped)

	doc, err := s.GetData(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Thoughts, 3)
}

func TestRun_ChangedNoteUpdatesThought(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := t.TempDir()
	path := writeNote(t, dir, "session.md", "---\nrelated: [Gandalf]\n---\nFirst draft.\n")

	_, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)

	doc, err := s.GetData(ctx)
	require.NoError(t, err)
	doc.Thoughts[0]["relatedEntityIds"] = []any{"stale-id"}
	doc.Thoughts[0]["syncStatus"] = "synced"
	doc.PendingChanges = model.NewPendingChanges()
	require.NoError(t, s.SaveData(ctx, doc))

	writeNote(t, dir, "session.md", "---\nrelated: [Frodo]\ncampaign: c2\n---\nSecond draft.\n")
	result, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Created)

	doc, err = s.GetData(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Thoughts, 1)
	rec := thoughtBySource(t, doc, path)
	assert.Equal(t, "note-1", rec.Key())
	assert.Equal(t, "Second draft.", rec["content"])
	assert.Equal(t, []any{"Frodo"}, rec["relatedEntities"])
	assert.Equal(t, []any{}, rec["relatedEntityIds"])
	assert.Equal(t, "c2", rec["campaignId"])
	assert.Equal(t, "pending", rec["syncStatus"])
	assert.Equal(t, []string{"note-1"}, doc.PendingChanges.Thoughts.Modified)
}

func TestRun_FullReimportsUnchangedNotes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "Alpha\n")

	_, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)

	result, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}, Full: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.FilesSkipped)
}

func TestRun_DryRunDoesNotSave(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := notesDir(t)

	result, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)

	doc, err := s.GetData(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Thoughts)
}

func TestRun_ParseErrorsAreCollected(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	dir := t.TempDir()
	writeNote(t, dir, "good.md", "Fine\n")
	writeNote(t, dir, "bad.md", "---\nrelated: [\n---\nbody\n")

	result, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "bad.md")
}

func TestRun_MissingRoot(t *testing.T) {
	_, err := newImporter(memory.New()).Run(context.Background(), Options{
		Roots: []string{filepath.Join(t.TempDir(), "missing")},
	})
	assert.Error(t, err)
}

func TestRun_NamesResolvedByValidationPass(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed := model.NewDocument()
	seed.Entities = []model.Record{
		{"localId": "e-gandalf", "name": "Gandalf", "category": "character", "campaignId": "c1"},
	}
	require.NoError(t, s.SaveData(ctx, seed))

	dir := t.TempDir()
	path := writeNote(t, dir, "session.md", "---\nrelated: [gandalf, Moria]\n---\nInto the dark.\n")
	_, err := newImporter(s).Run(ctx, Options{Roots: []string{dir}})
	require.NoError(t, err)

	runner := migrate.NewRunner(s, nil, nil,
		migrate.WithClock(clock),
		migrate.WithIdentity(identity),
		migrate.WithValidator(validate.New(nil, validate.WithClock(clock), validate.WithIDGenerator(sequentialIDs("gen")))),
		migrate.WithResolverOptions(resolve.WithClock(clock), resolve.WithIDGenerator(sequentialIDs("auto"))),
	)
	res, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Moria"}, res.Repair.Created)

	doc, err := s.GetData(ctx)
	require.NoError(t, err)
	rec := thoughtBySource(t, doc, path)
	assert.Equal(t, []any{"e-gandalf", "auto-1"}, rec["relatedEntityIds"])
	assert.Equal(t, []any{"Gandalf", "Moria"}, rec["relatedEntities"])
	assert.NotEmpty(t, rec[FieldSourceHash])
}
