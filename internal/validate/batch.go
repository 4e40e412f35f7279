package validate

import "github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"

// BatchResult keeps every record, in input order, in Records. Invalid records
// are returned rather than dropped; callers decide whether they are fatal.
type BatchResult struct {
	Records []model.Record
	Valid   []model.Record
	Invalid []model.Record
	// InvalidAt holds the positions of invalid records within Records.
	InvalidAt []int
	Errors    []Issue
	Fixes     []Issue
}

func (v *Validator) ValidateBatch(kind model.Kind, records []model.Record) BatchResult {
	result := BatchResult{
		Records:   make([]model.Record, 0, len(records)),
		Valid:     make([]model.Record, 0, len(records)),
		Invalid:   make([]model.Record, 0),
		InvalidAt: make([]int, 0),
		Errors:    make([]Issue, 0),
		Fixes:     make([]Issue, 0),
	}
	for i, record := range records {
		r := v.validateRecord(kind, record, recordLabel(record, i))
		result.Records = append(result.Records, r.Record)
		result.Errors = append(result.Errors, r.Errors...)
		result.Fixes = append(result.Fixes, r.Fixes...)
		if r.Valid() {
			result.Valid = append(result.Valid, r.Record)
		} else {
			result.Invalid = append(result.Invalid, r.Record)
			result.InvalidAt = append(result.InvalidAt, i)
		}
	}
	return result
}

type DocumentResult struct {
	Batches map[model.Kind]BatchResult
}

func (r DocumentResult) Checked(kind model.Kind) int {
	return len(r.Batches[kind].Records)
}

func (r DocumentResult) InvalidCount() int {
	n := 0
	for _, b := range r.Batches {
		n += len(b.Invalid)
	}
	return n
}

func (r DocumentResult) Fixed() int {
	n := 0
	for _, b := range r.Batches {
		n += len(b.Fixes)
	}
	return n
}

func (r DocumentResult) Issues() []Issue {
	issues := make([]Issue, 0)
	for _, kind := range model.Kinds {
		b := r.Batches[kind]
		issues = append(issues, b.Errors...)
		issues = append(issues, b.Fixes...)
	}
	return issues
}

// ValidateDocument validates every collection and writes the normalized
// records back into doc.
func (v *Validator) ValidateDocument(doc *model.Document) DocumentResult {
	result := DocumentResult{Batches: make(map[model.Kind]BatchResult, len(model.Kinds))}
	for _, kind := range model.Kinds {
		batch := v.ValidateBatch(kind, doc.Records(kind))
		doc.SetRecords(kind, batch.Records)
		result.Batches[kind] = batch
	}
	return result
}
