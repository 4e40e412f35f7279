package model

// ChangeSet is the pending-change log for one record kind.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

func (c *ChangeSet) RecordAdded(id string) {
	if id != "" {
		c.Added = append(c.Added, id)
	}
}

func (c *ChangeSet) RecordModified(id string) {
	if id != "" {
		c.Modified = append(c.Modified, id)
	}
}

func (c *ChangeSet) RecordDeleted(id string) {
	if id != "" {
		c.Deleted = append(c.Deleted, id)
	}
}

func (c ChangeSet) Count() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

func (c ChangeSet) Clone() ChangeSet {
	return ChangeSet{
		Added:    append([]string{}, c.Added...),
		Modified: append([]string{}, c.Modified...),
		Deleted:  append([]string{}, c.Deleted...),
	}
}

func (c *ChangeSet) normalize() {
	if c.Added == nil {
		c.Added = []string{}
	}
	if c.Modified == nil {
		c.Modified = []string{}
	}
	if c.Deleted == nil {
		c.Deleted = []string{}
	}
}

type PendingChanges struct {
	Campaigns ChangeSet `json:"campaigns"`
	Entities  ChangeSet `json:"entities"`
	Thoughts  ChangeSet `json:"thoughts"`
}

func NewPendingChanges() PendingChanges {
	var p PendingChanges
	p.normalize()
	return p
}

// For returns the change set for kind, or nil for an unknown kind.
func (p *PendingChanges) For(kind Kind) *ChangeSet {
	switch kind {
	case KindCampaign:
		return &p.Campaigns
	case KindEntity:
		return &p.Entities
	case KindThought:
		return &p.Thoughts
	default:
		return nil
	}
}

func (p PendingChanges) Count() int {
	return p.Campaigns.Count() + p.Entities.Count() + p.Thoughts.Count()
}

func (p PendingChanges) Clone() PendingChanges {
	return PendingChanges{
		Campaigns: p.Campaigns.Clone(),
		Entities:  p.Entities.Clone(),
		Thoughts:  p.Thoughts.Clone(),
	}
}

func (p *PendingChanges) normalize() {
	p.Campaigns.normalize()
	p.Entities.normalize()
	p.Thoughts.normalize()
}
