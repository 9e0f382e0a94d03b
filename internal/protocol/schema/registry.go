package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Default is the process-wide registry built from Definitions. A collision
// in the static table panics during package initialisation.
var Default = MustRegistry(Definitions()...)

// CollisionError reports two definitions sharing an id or a name.
type CollisionError struct {
	TypeID   uint16
	Name     string
	Existing string
	Reason   string
}

func (e CollisionError) Error() string {
	return fmt.Sprintf("schema: type=%d name=%q collides with %s: %s", e.TypeID, e.Name, e.Existing, e.Reason)
}

// Registry is an immutable lookup table of payload schemas. It is safe for
// concurrent use.
type Registry struct {
	byID   map[uint16]*Schema
	byName map[string]*Schema
}

// NewRegistry validates defs and indexes them by id and by name.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		byID:   make(map[uint16]*Schema, len(defs)),
		byName: make(map[string]*Schema, len(defs)),
	}
	for _, def := range defs {
		if prev, dup := r.byID[def.TypeID]; dup {
			log.Error().
				Uint16("type", def.TypeID).
				Str("name", def.Name).
				Str("existing", prev.Name()).
				Msg("schema.NewRegistry duplicate type id")
			return nil, CollisionError{TypeID: def.TypeID, Name: def.Name, Existing: prev.String(), Reason: "duplicate type id"}
		}
		if prev, dup := r.byName[def.Name]; dup {
			log.Error().
				Uint16("type", def.TypeID).
				Str("name", def.Name).
				Str("existing", prev.Name()).
				Msg("schema.NewRegistry duplicate name")
			return nil, CollisionError{TypeID: def.TypeID, Name: def.Name, Existing: prev.String(), Reason: "duplicate name"}
		}
		s, err := newSchema(def)
		if err != nil {
			return nil, err
		}
		r.byID[s.typeID] = s
		r.byName[s.name] = s
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on error.
func MustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// LookupID returns the schema for a type discriminant.
func (r *Registry) LookupID(id uint16) (*Schema, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// LookupName returns the schema registered under name.
func (r *Registry) LookupName(name string) (*Schema, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// IDs returns every registered discriminant in ascending order.
func (r *Registry) IDs() []uint16 {
	ids := maps.Keys(r.byID)
	slices.Sort(ids)
	return ids
}

// Schemas returns every schema ordered by discriminant.
func (r *Registry) Schemas() []*Schema {
	ids := r.IDs()
	out := make([]*Schema, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
	}
	return out
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int { return len(r.byID) }
