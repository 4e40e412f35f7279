package model

import (
	"fmt"
	"strings"
	"time"
)

// Chronicle is the typed view of a Document, used by the reference resolver,
// the cascade controller and mutation operations.
type Chronicle struct {
	Campaigns      []Campaign
	Entities       []Entity
	Thoughts       []Thought
	PendingChanges PendingChanges
	LastSync       *time.Time
	LastRefresh    *time.Time
}

func (c *Chronicle) Document() (*Document, error) {
	campaigns, err := encodeRecords(c.Campaigns)
	if err != nil {
		return nil, fmt.Errorf("encoding campaigns: %w", err)
	}
	entities, err := encodeRecords(c.Entities)
	if err != nil {
		return nil, fmt.Errorf("encoding entities: %w", err)
	}
	thoughts, err := encodeRecords(c.Thoughts)
	if err != nil {
		return nil, fmt.Errorf("encoding thoughts: %w", err)
	}
	doc := &Document{
		Campaigns:      campaigns,
		Entities:       entities,
		Thoughts:       thoughts,
		PendingChanges: c.PendingChanges.Clone(),
		LastSync:       c.LastSync,
		LastRefresh:    c.LastRefresh,
	}
	doc.Normalize()
	return doc, nil
}

// EntityIndex returns the position of the entity addressed by id, matching
// either its local or remote id.
func (c *Chronicle) EntityIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.Entities {
		if c.Entities[i].HasID(id) {
			return i
		}
	}
	return -1
}

func (c *Chronicle) ThoughtIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.Thoughts {
		if c.Thoughts[i].HasID(id) {
			return i
		}
	}
	return -1
}

// EntityByName finds an entity in the campaign by case-insensitive name. An
// empty campaignID matches every campaign.
func (c *Chronicle) EntityByName(campaignID, name string) (*Entity, bool) {
	key := NormalizeName(name)
	if key == "" {
		return nil, false
	}
	for i := range c.Entities {
		e := &c.Entities[i]
		if campaignID != "" && e.CampaignID != "" && e.CampaignID != campaignID {
			continue
		}
		if NormalizeName(e.Name) == key {
			return e, true
		}
	}
	return nil, false
}

// NormalizeName is the comparison form of an entity name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
