package model

import (
	"strings"

	"github.com/samber/lo"
)

// EntityLookup maps between entity ids and names.
type EntityLookup interface {
	NameOf(id string) (string, bool)
	IDOf(name string) (string, bool)
}

// Ref is one entity reference. Name is empty when the id no longer resolves.
type Ref struct {
	ID   string
	Name string
}

// RefSet is an immutable set of entity references keyed by id. IDs and Names
// are two projections of the same set, so a record written from a RefSet
// always has matching id and name arrays.
type RefSet struct {
	refs []Ref
}

func NewRefSet(refs ...Ref) RefSet {
	var s RefSet
	for _, ref := range refs {
		s = s.With(ref)
	}
	return s
}

// RefsFromIDs builds a set from an id array. Ids that do not resolve are
// kept with an empty name so they stay visible to audits.
func RefsFromIDs(ids []string, lookup EntityLookup) RefSet {
	var s RefSet
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		name := ""
		if lookup != nil {
			name, _ = lookup.NameOf(id)
		}
		s = s.With(Ref{ID: id, Name: name})
	}
	return s
}

// RefsFromNames resolves names through lookup. Names that do not resolve are
// returned separately and are not part of the set.
func RefsFromNames(names []string, lookup EntityLookup) (RefSet, []string) {
	var s RefSet
	unresolved := make([]string, 0)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, ok := lookup.IDOf(name)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		canonical, _ := lookup.NameOf(id)
		if canonical == "" {
			canonical = name
		}
		s = s.With(Ref{ID: id, Name: canonical})
	}
	return s, unresolved
}

func (s RefSet) Len() int {
	return len(s.refs)
}

func (s RefSet) Refs() []Ref {
	return append([]Ref{}, s.refs...)
}

func (s RefSet) IDs() []string {
	return lo.Map(s.refs, func(r Ref, _ int) string { return r.ID })
}

func (s RefSet) Names() []string {
	return lo.FilterMap(s.refs, func(r Ref, _ int) (string, bool) {
		return r.Name, r.Name != ""
	})
}

func (s RefSet) ContainsID(id string) bool {
	return lo.ContainsBy(s.refs, func(r Ref) bool { return r.ID == id })
}

func (s RefSet) ContainsName(name string) bool {
	key := NormalizeName(name)
	return lo.ContainsBy(s.refs, func(r Ref) bool {
		return r.Name != "" && NormalizeName(r.Name) == key
	})
}

// With returns a copy including ref. An existing entry with the same id keeps
// its position and picks up the name if it had none.
func (s RefSet) With(ref Ref) RefSet {
	if strings.TrimSpace(ref.ID) == "" {
		return s
	}
	refs := append([]Ref{}, s.refs...)
	for i := range refs {
		if refs[i].ID == ref.ID {
			if refs[i].Name == "" {
				refs[i].Name = ref.Name
			}
			return RefSet{refs: refs}
		}
	}
	return RefSet{refs: append(refs, ref)}
}

func (s RefSet) WithoutID(id string) RefSet {
	return RefSet{refs: lo.Reject(s.refs, func(r Ref, _ int) bool { return r.ID == id })}
}

func (s RefSet) WithoutName(name string) RefSet {
	key := NormalizeName(name)
	return RefSet{refs: lo.Reject(s.refs, func(r Ref, _ int) bool {
		return r.Name != "" && NormalizeName(r.Name) == key
	})}
}

// Dangling returns the ids whose names could not be resolved.
func (s RefSet) Dangling() []string {
	return lo.FilterMap(s.refs, func(r Ref, _ int) (string, bool) {
		return r.ID, r.Name == ""
	})
}
