package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the persisted store: every record collection plus the
// pending-change log and sync bookkeeping.
type Document struct {
	Campaigns      []Record       `json:"campaigns"`
	Entities       []Record       `json:"entities"`
	Thoughts       []Record       `json:"thoughts"`
	PendingChanges PendingChanges `json:"pendingChanges"`
	LastSync       *time.Time     `json:"lastSync,omitempty"`
	LastRefresh    *time.Time     `json:"lastRefresh,omitempty"`
}

func NewDocument() *Document {
	return &Document{
		Campaigns:      []Record{},
		Entities:       []Record{},
		Thoughts:       []Record{},
		PendingChanges: NewPendingChanges(),
	}
}

func (d *Document) Records(kind Kind) []Record {
	switch kind {
	case KindCampaign:
		return d.Campaigns
	case KindEntity:
		return d.Entities
	case KindThought:
		return d.Thoughts
	default:
		return nil
	}
}

func (d *Document) SetRecords(kind Kind, records []Record) {
	if records == nil {
		records = []Record{}
	}
	switch kind {
	case KindCampaign:
		d.Campaigns = records
	case KindEntity:
		d.Entities = records
	case KindThought:
		d.Thoughts = records
	}
}

func (d *Document) IsEmpty() bool {
	return len(d.Campaigns) == 0 && len(d.Entities) == 0 && len(d.Thoughts) == 0
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Campaigns:      cloneRecords(d.Campaigns),
		Entities:       cloneRecords(d.Entities),
		Thoughts:       cloneRecords(d.Thoughts),
		PendingChanges: d.PendingChanges.Clone(),
	}
	if d.LastSync != nil {
		t := *d.LastSync
		out.LastSync = &t
	}
	if d.LastRefresh != nil {
		t := *d.LastRefresh
		out.LastRefresh = &t
	}
	return out
}

// Normalize replaces nil collections with empty ones. Stores call it after
// loading so callers never see a nil slice.
func (d *Document) Normalize() {
	if d.Campaigns == nil {
		d.Campaigns = []Record{}
	}
	if d.Entities == nil {
		d.Entities = []Record{}
	}
	if d.Thoughts == nil {
		d.Thoughts = []Record{}
	}
	d.PendingChanges.normalize()
}

// Decode converts validated records into typed collections.
func (d *Document) Decode() (*Chronicle, error) {
	c := &Chronicle{
		PendingChanges: d.PendingChanges.Clone(),
		LastSync:       d.LastSync,
		LastRefresh:    d.LastRefresh,
	}
	if err := decodeRecords(d.Campaigns, &c.Campaigns); err != nil {
		return nil, fmt.Errorf("decoding campaigns: %w", err)
	}
	if err := decodeRecords(d.Entities, &c.Entities); err != nil {
		return nil, fmt.Errorf("decoding entities: %w", err)
	}
	if err := decodeRecords(d.Thoughts, &c.Thoughts); err != nil {
		return nil, fmt.Errorf("decoding thoughts: %w", err)
	}
	c.PendingChanges.normalize()
	return c, nil
}

func decodeRecords[T any](records []Record, out *[]T) error {
	items := make([]T, 0, len(records))
	for i, record := range records {
		item, err := DecodeRecord[T](record)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, item)
	}
	*out = items
	return nil
}

func encodeRecords[T any](items []T) ([]Record, error) {
	records := make([]Record, 0, len(items))
	for i, item := range items {
		record, err := EncodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// DecodeRecord converts one loose record into T through its JSON form.
func DecodeRecord[T any](record Record) (T, error) {
	var item T
	data, err := json.Marshal(record)
	if err != nil {
		return item, err
	}
	err = json.Unmarshal(data, &item)
	return item, err
}

func EncodeRecord[T any](item T) (Record, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}
