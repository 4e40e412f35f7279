// Package migrate upgrades the local store from its recorded schema version
// to the build's target version, validating and repairing references on the
// way. A failed pass leaves the store exactly as it was.
package migrate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ledger"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
)

// ErrInvalidRecords is returned when migrated records are missing required
// fields.
var ErrInvalidRecords = errors.New("records missing required fields after migration")

// UpFunc transforms the whole document. It receives the output of the
// previous step and may modify it in place.
type UpFunc func(doc *model.Document) (*model.Document, error)

type Migration struct {
	Version string
	Name    string
	Up      UpFunc

	version ledger.Version
}

func (m Migration) String() string {
	return m.Version + " " + m.Name
}

// StepError reports the migration that failed.
type StepError struct {
	Version string
	Name    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration %s (%s) failed: %v", e.Name, e.Version, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Registry is an ordered, immutable set of migrations.
type Registry struct {
	migrations []Migration
}

// NewRegistry sorts migrations by version. Versions must parse and be unique.
func NewRegistry(migrations ...Migration) (*Registry, error) {
	out := make([]Migration, 0, len(migrations))
	seen := make(map[ledger.Version]string, len(migrations))
	for _, m := range migrations {
		v, err := ledger.Parse(m.Version)
		if err != nil {
			return nil, fmt.Errorf("registering migration %q: %w", m.Name, err)
		}
		if m.Name == "" {
			return nil, fmt.Errorf("registering migration %s: name is required", m.Version)
		}
		if m.Up == nil {
			return nil, fmt.Errorf("registering migration %s: up function is required", m.Name)
		}
		if prev, ok := seen[v]; ok {
			return nil, fmt.Errorf("registering migration %s: version %s already used by %s", m.Name, v, prev)
		}
		seen[v] = m.Name
		m.version = v
		m.Version = v.String()
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.version.Compare(b.version) })
	return &Registry{migrations: out}, nil
}

func MustRegistry(migrations ...Migration) *Registry {
	r, err := NewRegistry(migrations...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) All() []Migration {
	return slices.Clone(r.migrations)
}

// Latest returns the highest registered version, or 0.0.0 for an empty
// registry.
func (r *Registry) Latest() ledger.Version {
	if len(r.migrations) == 0 {
		return ledger.Version{}
	}
	return r.migrations[len(r.migrations)-1].version
}

// Pending returns migrations newer than stored and not newer than target, in
// ascending order.
func (r *Registry) Pending(stored, target ledger.Version) []Migration {
	out := make([]Migration, 0)
	for _, m := range r.migrations {
		if stored.Less(m.version) && !target.Less(m.version) {
			out = append(out, m)
		}
	}
	return out
}
