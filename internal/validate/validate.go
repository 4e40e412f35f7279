package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/resolve"
)

// DocumentReader is the part of a store the audit needs.
type DocumentReader interface {
	GetData(ctx context.Context) (*model.Document, error)
}

// Run audits the store without changing it: schema problems, fixes the
// validator would apply, ids and names that do not resolve, drift between id
// and name arrays, records sharing an id and duplicate entity names. campaignID is listed first; every
// campaign in the store is audited.
func Run(ctx context.Context, validator *Validator, reader DocumentReader, campaignID string) (*Report, error) {
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("store is required")
	}

	doc, err := reader.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	checked := validator.ValidateDocument(doc)
	issues := checked.Issues()
	issues = append(issues, duplicateIDIssues(doc)...)

	exclude := make(map[model.Kind][]int, len(checked.Batches))
	for kind, batch := range checked.Batches {
		exclude[kind] = batch.InvalidAt
	}
	view := model.NewView(doc, exclude)

	for _, scope := range resolve.CampaignScopes(view.Data, campaignID) {
		r := resolve.New(view.Data, model.Identity{CampaignID: scope}, nil)
		issues = append(issues, referenceIssues(r)...)
	}

	return &Report{Issues: lo.Uniq(issues)}, nil
}

func referenceIssues(r *resolve.Resolver) []Issue {
	issues := make([]Issue, 0)

	for _, rec := range r.AuditIDs().Records {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeOrphanedID,
			Message:  fmt.Sprintf("ids do not resolve to an entity: %s", strings.Join(rec.IDs, ", ")),
			Kind:     rec.Kind,
			Record:   rec.RecordID,
			Field:    rec.Field,
		})
	}

	for _, orphan := range r.AuditNames() {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeOrphanedName,
			Message:  fmt.Sprintf("names do not resolve and will be auto-created: %s", strings.Join(orphan.Names, ", ")),
			Kind:     orphan.Kind,
			Record:   orphan.RecordID,
			Field:    orphan.Field,
		})
	}

	for _, d := range r.DetectDrift() {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeReferenceDrift,
			Message:  driftMessage(d),
			Kind:     d.Kind,
			Record:   d.RecordID,
			Field:    d.Field,
		})
	}

	for _, name := range r.DuplicateNames() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeDuplicateName,
			Message:  fmt.Sprintf("duplicate entity name in campaign: %s", name),
			Kind:     model.KindEntity,
			Record:   name,
		})
	}
	return issues
}

// duplicateIDIssues reports records of one kind that share a key. Both
// records are kept; references to the key are ambiguous until one is renamed.
func duplicateIDIssues(doc *model.Document) []Issue {
	issues := make([]Issue, 0)
	for _, kind := range []model.Kind{model.KindCampaign, model.KindEntity, model.KindThought} {
		counts := make(map[string]int)
		order := make([]string, 0)
		for _, rec := range doc.Records(kind) {
			key := rec.Key()
			if key == "" {
				continue
			}
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
		for _, key := range order {
			if counts[key] < 2 {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeDuplicateID,
				Message:  fmt.Sprintf("%d records share the id %s", counts[key], key),
				Kind:     kind,
				Record:   key,
			})
		}
	}
	return issues
}

func driftMessage(d resolve.Drift) string {
	parts := make([]string, 0, 2)
	if len(d.MissingNames) > 0 {
		parts = append(parts, "missing names "+strings.Join(d.MissingNames, ", "))
	}
	if len(d.ExtraNames) > 0 {
		parts = append(parts, "names without ids "+strings.Join(d.ExtraNames, ", "))
	}
	return "id and name arrays disagree: " + strings.Join(parts, "; ")
}
