package model

import (
	"fmt"
	"reflect"
)

// View is a typed working copy of the decodable records of a Document.
// Records that are excluded or do not decode stay out of the view and are
// carried through Apply untouched.
type View struct {
	Data *Chronicle

	// Skipped counts records that failed to decode.
	Skipped int

	// baselines hold the typed encoding of each viewed record at load time,
	// keyed by position in the document.
	entityBase  map[int]Record
	thoughtBase map[int]Record
}

// NewView decodes doc. exclude lists record positions per kind to leave out,
// typically records that failed validation.
func NewView(doc *Document, exclude map[Kind][]int) *View {
	v := &View{
		Data: &Chronicle{
			Campaigns:      []Campaign{},
			Entities:       []Entity{},
			Thoughts:       []Thought{},
			PendingChanges: doc.PendingChanges.Clone(),
			LastSync:       doc.LastSync,
			LastRefresh:    doc.LastRefresh,
		},
		entityBase:  make(map[int]Record),
		thoughtBase: make(map[int]Record),
	}
	v.Data.PendingChanges.normalize()

	for _, record := range doc.Campaigns {
		if c, err := DecodeRecord[Campaign](record); err == nil {
			v.Data.Campaigns = append(v.Data.Campaigns, c)
		}
	}

	skip := positionSet(exclude[KindEntity])
	for i, record := range doc.Entities {
		if skip[i] || record.Key() == "" {
			continue
		}
		e, err := DecodeRecord[Entity](record)
		if err != nil {
			v.Skipped++
			continue
		}
		base, err := EncodeRecord(e)
		if err != nil {
			v.Skipped++
			continue
		}
		e.origin = i + 1
		v.Data.Entities = append(v.Data.Entities, e)
		v.entityBase[i] = base
	}

	skip = positionSet(exclude[KindThought])
	for i, record := range doc.Thoughts {
		if skip[i] || record.Key() == "" {
			continue
		}
		t, err := DecodeRecord[Thought](record)
		if err != nil {
			v.Skipped++
			continue
		}
		base, err := EncodeRecord(t)
		if err != nil {
			v.Skipped++
			continue
		}
		t.origin = i + 1
		v.Data.Thoughts = append(v.Data.Thoughts, t)
		v.thoughtBase[i] = base
	}
	return v
}

// Apply writes the view back into doc, the document it was built from.
// Typed fields are laid over the original records so unknown fields survive.
// Records are matched by their position in doc, not by key, so records that
// share an id stay distinct. A field the original record lacked is only added
// when its value changed. Records removed from the view are dropped and new
// ones are appended. Campaigns are read-only in a view.
func (v *View) Apply(doc *Document) error {
	entities := make([]positioned, 0, len(v.Data.Entities))
	for i := range v.Data.Entities {
		e := &v.Data.Entities[i]
		entities = append(entities, positioned{Origin: e.origin, Key: e.Key(), Item: *e})
	}
	merged, err := mergeRecords(doc.Entities, v.entityBase, entities)
	if err != nil {
		return fmt.Errorf("applying entities: %w", err)
	}
	doc.Entities = merged

	thoughts := make([]positioned, 0, len(v.Data.Thoughts))
	for i := range v.Data.Thoughts {
		t := &v.Data.Thoughts[i]
		thoughts = append(thoughts, positioned{Origin: t.origin, Key: t.Key(), Item: *t})
	}
	merged, err = mergeRecords(doc.Thoughts, v.thoughtBase, thoughts)
	if err != nil {
		return fmt.Errorf("applying thoughts: %w", err)
	}
	doc.Thoughts = merged

	doc.PendingChanges = v.Data.PendingChanges.Clone()
	doc.LastSync = v.Data.LastSync
	doc.LastRefresh = v.Data.LastRefresh
	return nil
}

// positioned pairs a typed record with the 1-based document position it was
// decoded from, or zero when it is new.
type positioned struct {
	Origin int
	Key    string
	Item   any
}

func mergeRecords(original []Record, baselines map[int]Record, items []positioned) ([]Record, error) {
	byOrigin := make(map[int]Record, len(items))
	added := make([]Record, 0)
	for _, item := range items {
		record, err := EncodeRecord(item.Item)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", item.Key, err)
		}
		_, claimed := byOrigin[item.Origin]
		if item.Origin == 0 || claimed {
			added = append(added, record)
			continue
		}
		byOrigin[item.Origin] = record
	}

	out := make([]Record, 0, len(original)+len(added))
	for i, record := range original {
		base, inView := baselines[i]
		if !inView {
			out = append(out, record)
			continue
		}
		top, ok := byOrigin[i+1]
		if !ok {
			continue
		}
		merged := record.Clone()
		for k, val := range top {
			if _, had := record[k]; !had && reflect.DeepEqual(base[k], val) {
				continue
			}
			merged[k] = val
		}
		out = append(out, merged)
	}
	return append(out, added...), nil
}

func positionSet(positions []int) map[int]bool {
	set := make(map[int]bool, len(positions))
	for _, i := range positions {
		set[i] = true
	}
	return set
}
