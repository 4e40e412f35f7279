package model

import "time"

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is a named campaign object that thoughts and other entities refer
// to. Relationships are kept as id arrays with mirrored name arrays; write
// them through SetParents and SetLinks so both forms change together.
type Entity struct {
	LocalID         string      `json:"localId,omitempty"`
	RemoteID        string      `json:"_id,omitempty"`
	Name            string      `json:"name"`
	Category        Category    `json:"category"`
	Description     string      `json:"description"`
	Attributes      []Attribute `json:"attributes"`
	ParentEntityIDs []string    `json:"parentEntityIds"`
	LinkedEntityIDs []string    `json:"linkedEntityIds"`
	ParentEntities  []string    `json:"parentEntities"`
	LinkedEntities  []string    `json:"linkedEntities"`
	Provenance      Provenance  `json:"provenance"`
	SyncStatus      SyncStatus  `json:"syncStatus"`
	CampaignID      string      `json:"campaignId"`
	CreatedBy       string      `json:"createdBy"`
	CreatedLocally  time.Time   `json:"createdLocally"`
	ModifiedLocally time.Time   `json:"modifiedLocally"`

	// origin is the 1-based position of the record this entity was decoded
	// from; zero for entities created in memory.
	origin int
}

// Key returns the id other records should use for this entity. The local id
// wins over the remote id so offline-created entities stay addressable.
func (e *Entity) Key() string {
	if e.LocalID != "" {
		return e.LocalID
	}
	return e.RemoteID
}

func (e *Entity) HasID(id string) bool {
	return id != "" && (id == e.LocalID || id == e.RemoteID)
}

func (e *Entity) Parents(lookup EntityLookup) RefSet {
	return RefsFromIDs(e.ParentEntityIDs, lookup)
}

func (e *Entity) Links(lookup EntityLookup) RefSet {
	return RefsFromIDs(e.LinkedEntityIDs, lookup)
}

func (e *Entity) SetParents(refs RefSet) {
	e.ParentEntityIDs = refs.IDs()
	e.ParentEntities = refs.Names()
}

func (e *Entity) SetLinks(refs RefSet) {
	e.LinkedEntityIDs = refs.IDs()
	e.LinkedEntities = refs.Names()
}

// Touch marks the entity as locally modified and awaiting sync.
func (e *Entity) Touch(now time.Time) {
	e.SyncStatus = SyncPending
	e.ModifiedLocally = now
}
