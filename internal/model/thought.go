package model

import "time"

// Thought is a free-text journal entry tied to zero or more entities.
type Thought struct {
	LocalID          string     `json:"localId,omitempty"`
	RemoteID         string     `json:"_id,omitempty"`
	Content          string     `json:"content"`
	Timestamp        time.Time  `json:"timestamp"`
	GameDate         string     `json:"gameDate"`
	RelatedEntityIDs []string   `json:"relatedEntityIds"`
	RelatedEntities  []string   `json:"relatedEntities"`
	CampaignID       string     `json:"campaignId"`
	CreatedBy        string     `json:"createdBy"`
	SyncStatus       SyncStatus `json:"syncStatus"`
	ModifiedLocally  time.Time  `json:"modifiedLocally"`

	// origin is the 1-based position of the record this thought was decoded
	// from; zero for thoughts created in memory.
	origin int
}

func (t *Thought) Key() string {
	if t.LocalID != "" {
		return t.LocalID
	}
	return t.RemoteID
}

func (t *Thought) HasID(id string) bool {
	return id != "" && (id == t.LocalID || id == t.RemoteID)
}

func (t *Thought) Related(lookup EntityLookup) RefSet {
	return RefsFromIDs(t.RelatedEntityIDs, lookup)
}

func (t *Thought) SetRelated(refs RefSet) {
	t.RelatedEntityIDs = refs.IDs()
	t.RelatedEntities = refs.Names()
}

func (t *Thought) Touch(now time.Time) {
	t.SyncStatus = SyncPending
	t.ModifiedLocally = now
}
