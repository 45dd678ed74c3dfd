// Package schema derives a complete GraphQL API from relational entity
// definitions: output and input types, query/mutation/subscription roots,
// resolvers backed by the store collaborator, and change events on the bus.
package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/batch"
	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/store"
)

// Registry holds the bidirectional type mapping for one schema build: one
// output type and one input type per entity. Field sets are thunked so
// association fields can reference types that are still under construction —
// the registry is the shared lookup table forward references resolve
// through, which is what makes cyclic entity graphs safe.
type Registry struct {
	set    entity.Set
	store  store.Store
	tracer tracing.Tracer

	Output map[string]*graphql.Object
	Input  map[string]*graphql.InputObject

	// attrCache shares the sensitive-field filtering across the output and
	// input variants of the same entity.
	attrCache map[string][]entity.Attribute

	info       *graphql.Object
	resultSets map[string]*graphql.Object
}

// NewRegistry validates the entity set and builds both type maps in one
// pass. Iteration order does not matter: field sets are evaluated lazily on
// first read by the schema consumer.
func NewRegistry(set entity.Set, st store.Store, tracer tracing.Tracer) (*Registry, error) {
	if st == nil {
		return nil, fmt.Errorf("schema: store is required")
	}
	if err := entity.Validate(set); err != nil {
		return nil, fmt.Errorf("schema: invalid entity metadata: %w", err)
	}

	r := &Registry{
		set:        set,
		store:      st,
		tracer:     tracing.OrNoop(tracer),
		Output:     map[string]*graphql.Object{},
		Input:      map[string]*graphql.InputObject{},
		attrCache:  map[string][]entity.Attribute{},
		resultSets: map[string]*graphql.Object{},
	}
	for _, ent := range set.Entities() {
		ent := ent
		r.Output[ent.Name] = graphql.NewObject(graphql.ObjectConfig{
			Name: typeName(ent.Name),
			Fields: (graphql.FieldsThunk)(func() graphql.Fields {
				return r.outputFields(ent)
			}),
		})
		r.Input[ent.Name] = graphql.NewInputObject(graphql.InputObjectConfig{
			Name: inputTypeName(ent.Name),
			Fields: (graphql.InputObjectConfigFieldMapThunk)(func() graphql.InputObjectConfigFieldMap {
				return r.inputFields(ent)
			}),
		})
	}
	return r, nil
}

// visibleAttrs filters sensitive attributes once per entity; both type
// variants share the result.
func (r *Registry) visibleAttrs(ent *entity.Entity) []entity.Attribute {
	if cached, ok := r.attrCache[ent.Name]; ok {
		return cached
	}
	attrs := make([]entity.Attribute, 0, len(ent.Attributes))
	for _, attr := range ent.Attributes {
		if attr.IsSensitive {
			continue
		}
		attrs = append(attrs, attr)
	}
	r.attrCache[ent.Name] = attrs
	return attrs
}

// scalarType returns the concrete scalar so the result can serve both output
// fields and input arguments.
func scalarType(attr entity.Attribute) *graphql.Scalar {
	switch attr.Type {
	case entity.TypeID:
		return graphql.ID
	case entity.TypeInt:
		return graphql.Int
	case entity.TypeFloat:
		return graphql.Float
	case entity.TypeBoolean:
		return graphql.Boolean
	case entity.TypeDateTime:
		return graphql.DateTime
	default:
		return graphql.String
	}
}

// fieldOf reads one key out of a record source. The executor's default
// resolver only understands the plain map type, not store.Record, so every
// generated field carries this resolver explicitly.
func fieldOf(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if rec, ok := toRecord(p.Source); ok {
			return rec[name], nil
		}
		return graphql.DefaultResolveFn(p)
	}
}

func (r *Registry) outputFields(ent *entity.Entity) graphql.Fields {
	fields := graphql.Fields{}
	for _, attr := range r.visibleAttrs(ent) {
		var typ graphql.Output = scalarType(attr)
		if !attr.Nullable {
			typ = graphql.NewNonNull(typ)
		}
		fields[attr.Name] = &graphql.Field{Type: typ, Resolve: fieldOf(attr.Name)}
	}
	for name, field := range r.associationFields(ent) {
		fields[name] = field
	}
	return fields
}

// inputFields mirrors the output shape structurally: no resolvers, and every
// field optional so partial writes stay expressible.
func (r *Registry) inputFields(ent *entity.Entity) graphql.InputObjectConfigFieldMap {
	fields := graphql.InputObjectConfigFieldMap{}
	for _, attr := range r.visibleAttrs(ent) {
		fields[attr.Name] = &graphql.InputObjectFieldConfig{Type: scalarType(attr)}
	}
	for _, assoc := range ent.Associations {
		target, ok := r.Input[assoc.Target]
		if !ok {
			continue
		}
		var typ graphql.Input = target
		if assoc.Kind != entity.BelongsToKind {
			typ = graphql.NewList(target)
		}
		fields[assoc.Name] = &graphql.InputObjectFieldConfig{Type: typ}
	}
	return fields
}

// associationFields maps an entity's associations to typed fields with
// related-record resolvers. HasMany and BelongsToMany become collections,
// BelongsTo a single reference.
func (r *Registry) associationFields(ent *entity.Entity) graphql.Fields {
	fields := graphql.Fields{}
	for _, assoc := range ent.Associations {
		target, ok := r.Output[assoc.Target]
		if !ok {
			continue
		}
		var typ graphql.Output = target
		if assoc.Kind != entity.BelongsToKind {
			typ = graphql.NewList(target)
		}
		assoc := assoc
		fields[assoc.Name] = &graphql.Field{
			Type:    typ,
			Resolve: r.resolveAssociation(ent, assoc),
		}
	}
	return fields
}

func toRecord(source any) (store.Record, bool) {
	switch rec := source.(type) {
	case store.Record:
		return rec, true
	case map[string]any:
		return store.Record(rec), true
	default:
		return nil, false
	}
}

// resolveAssociation fetches related records through the store, coalescing
// repeated fetches within one request via the batch cache when present.
func (r *Registry) resolveAssociation(ent *entity.Entity, assoc entity.Association) graphql.FieldResolveFn {
	pk, _ := ent.PrimaryKey()
	return func(p graphql.ResolveParams) (any, error) {
		owner, ok := toRecord(p.Source)
		if !ok {
			return nil, nil
		}
		ctx := p.Context
		key := fmt.Sprintf("assoc/%s/%s/%v", ent.Name, assoc.Name, owner[pk.Name])
		cache := batch.FromContext(ctx)
		if cache != nil {
			if value, hit, err := cache.Get(ctx, key); err == nil && hit {
				return value, nil
			}
		}

		rows, err := r.store.FindAssociated(ctx, ent.Name, owner, assoc)
		if err != nil {
			return nil, err
		}
		var value any
		if assoc.Kind == entity.BelongsToKind {
			if len(rows) > 0 {
				value = rows[0]
			}
		} else {
			value = rows
		}
		if cache != nil {
			if err := cache.Set(ctx, key, value); err != nil {
				return nil, err
			}
		}
		return value, nil
	}
}
