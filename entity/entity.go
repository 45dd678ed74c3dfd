// Package entity describes the relational metadata the engine derives a
// GraphQL API from: entities, scalar attributes, and associations. The
// definitions are pure data; persistence belongs to the store collaborator.
package entity

import "sort"

type AttrType string

const (
	TypeID       AttrType = "id"
	TypeString   AttrType = "string"
	TypeText     AttrType = "text"
	TypeInt      AttrType = "integer"
	TypeFloat    AttrType = "float"
	TypeBoolean  AttrType = "boolean"
	TypeDateTime AttrType = "datetime"
	TypeJSON     AttrType = "json"
)

// Attribute is one scalar column of an entity.
type Attribute struct {
	Name        string
	Type        AttrType
	Nullable    bool
	IsPrimary   bool
	IsSensitive bool
}

func (a Attribute) Primary() Attribute  { a.IsPrimary = true; return a }
func (a Attribute) Optional() Attribute { a.Nullable = true; return a }

// Sensitive marks credential-grade attributes. They never appear in any
// generated type, output or input.
func (a Attribute) Sensitive() Attribute { a.IsSensitive = true; return a }

func ID(name string) Attribute       { return Attribute{Name: name, Type: TypeID} }
func String(name string) Attribute   { return Attribute{Name: name, Type: TypeString} }
func Text(name string) Attribute     { return Attribute{Name: name, Type: TypeText} }
func Int(name string) Attribute      { return Attribute{Name: name, Type: TypeInt} }
func Float(name string) Attribute    { return Attribute{Name: name, Type: TypeFloat} }
func Boolean(name string) Attribute  { return Attribute{Name: name, Type: TypeBoolean} }
func DateTime(name string) Attribute { return Attribute{Name: name, Type: TypeDateTime} }
func JSON(name string) Attribute     { return Attribute{Name: name, Type: TypeJSON} }

type AssociationKind string

const (
	BelongsToKind     AssociationKind = "belongsTo"
	HasManyKind       AssociationKind = "hasMany"
	BelongsToManyKind AssociationKind = "belongsToMany"
)

// Association is a declared relationship between two entities. Name is the
// field name on the owning entity; Target references the related entity by
// its metadata name.
type Association struct {
	Name       string
	Target     string
	Kind       AssociationKind
	ForeignKey string
}

// Key overrides the conventional foreign-key attribute name.
func (a Association) Key(name string) Association { a.ForeignKey = name; return a }

func BelongsTo(name, target string) Association {
	return Association{Name: name, Target: target, Kind: BelongsToKind}
}

func HasMany(name, target string) Association {
	return Association{Name: name, Target: target, Kind: HasManyKind}
}

func BelongsToMany(name, target string) Association {
	return Association{Name: name, Target: target, Kind: BelongsToManyKind}
}

// Resolve carries inline resolver overrides declared with the entity. Values
// are either complete field descriptors (*graphql.Field) or plain resolution
// functions; the schema layer wraps the latter into list-returning fields.
// Overrides win name collisions against generated fields and against
// directory-discovered resolvers.
type Resolve struct {
	Query    map[string]any
	Mutation map[string]any
}

// Entity is one relational entity definition. Read-only to the engine.
type Entity struct {
	Name         string
	Attributes   []Attribute
	Associations []Association
	Resolve      Resolve
}

// New builds an entity definition.
func New(name string, attrs ...Attribute) *Entity {
	return &Entity{Name: name, Attributes: attrs}
}

// WithAssociations appends association declarations and returns the entity.
func (e *Entity) WithAssociations(assocs ...Association) *Entity {
	e.Associations = append(e.Associations, assocs...)
	return e
}

// WithResolve attaches inline resolver overrides.
func (e *Entity) WithResolve(r Resolve) *Entity {
	e.Resolve = r
	return e
}

// PrimaryKey returns the primary-key attribute.
func (e *Entity) PrimaryKey() (Attribute, bool) {
	for _, attr := range e.Attributes {
		if attr.IsPrimary {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Attribute looks up a scalar attribute by name.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	for _, attr := range e.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Association looks up an association by field name.
func (e *Entity) Association(name string) (Association, bool) {
	for _, assoc := range e.Associations {
		if assoc.Name == name {
			return assoc, true
		}
	}
	return Association{}, false
}

// HasManys returns the associations eligible for cascade writes.
func (e *Entity) HasManys() []Association {
	out := make([]Association, 0, len(e.Associations))
	for _, assoc := range e.Associations {
		if assoc.Kind == HasManyKind {
			out = append(out, assoc)
		}
	}
	return out
}

// Set is the full entity map handed to the engine, keyed by entity name.
// Entries with a nil definition or an underscore-prefixed key are reserved
// for connector metadata and are skipped by the type registry.
type Set map[string]*Entity

// Collect builds a Set keyed by each entity's name.
func Collect(entities ...*Entity) Set {
	set := make(Set, len(entities))
	for _, ent := range entities {
		if ent == nil {
			continue
		}
		set[ent.Name] = ent
	}
	return set
}

// Entities returns the user entities in deterministic name order, skipping
// reserved entries.
func (s Set) Entities() []*Entity {
	names := make([]string, 0, len(s))
	for name, ent := range s {
		if ent == nil || name == "" || name[0] == '_' {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Entity, 0, len(names))
	for _, name := range names {
		out = append(out, s[name])
	}
	return out
}
