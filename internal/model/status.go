package model

// Provenance records how an entity came to exist.
type Provenance string

const (
	ProvenanceUser Provenance = "user" // created explicitly by a user
	ProvenanceAuto Provenance = "auto" // created to heal a dangling reference
)

func (p Provenance) String() string {
	return string(p)
}

func (p Provenance) IsValid() bool {
	switch p {
	case ProvenanceUser, ProvenanceAuto:
		return true
	default:
		return false
	}
}

// SyncStatus tracks whether a record still has local changes to push.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncConflict SyncStatus = "conflict"
)

func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncPending, SyncSynced, SyncConflict:
		return true
	default:
		return false
	}
}

// Category is the closed set of entity kinds.
type Category string

const (
	CategoryCharacter     Category = "character"
	CategoryLocation      Category = "location"
	CategoryItem          Category = "item"
	CategoryOrganization  Category = "organization"
	CategoryEvent         Category = "event"
	CategoryLore          Category = "lore"
	CategoryUncategorized Category = "uncategorized"
)

var Categories = []Category{
	CategoryCharacter,
	CategoryLocation,
	CategoryItem,
	CategoryOrganization,
	CategoryEvent,
	CategoryLore,
	CategoryUncategorized,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Role is a campaign member's role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleMember Role = "member"
)
