package schema

import (
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/entity"
)

// applyOverrides layers custom resolvers over the generated fields. Layers
// merge low to high priority: generated fields are already present, provider
// discoveries overwrite them, and inline metadata overrides overwrite both.
func (r *Registry) applyOverrides(fields graphql.Fields, kind customs.Kind, providers []customs.Provider) error {
	for _, provider := range providers {
		named, err := provider.ListResolvers(kind)
		if err != nil {
			return fmt.Errorf("schema: custom resolver discovery: %w", err)
		}
		for _, n := range named {
			field, err := r.fieldFromNamed(n)
			if err != nil {
				return err
			}
			fields[n.Name] = field
		}
	}

	for _, ent := range r.set.Entities() {
		inline := ent.Resolve.Query
		if kind == customs.KindMutation {
			inline = ent.Resolve.Mutation
		}
		if len(inline) == 0 {
			continue
		}
		names := make([]string, 0, len(inline))
		for name := range inline {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			field, err := r.fieldFromInline(ent, name, inline[name])
			if err != nil {
				return err
			}
			fields[name] = field
		}
	}
	return nil
}

func (r *Registry) fieldFromNamed(n customs.Named) (*graphql.Field, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("schema: custom resolver with empty name")
	}
	if n.Field != nil {
		return n.Field, nil
	}
	if n.Resolver == nil {
		return nil, fmt.Errorf("schema: custom resolver %s has neither field nor function", n.Name)
	}
	ent, ok := r.set[n.Entity]
	if !ok || ent == nil {
		return nil, fmt.Errorf("schema: custom resolver %s references unknown entity %q", n.Name, n.Entity)
	}
	return r.wrapResolver(ent, n.Resolver), nil
}

func (r *Registry) fieldFromInline(ent *entity.Entity, name string, raw any) (*graphql.Field, error) {
	switch v := raw.(type) {
	case *graphql.Field:
		return v, nil
	case customs.ResolverFunc:
		return r.wrapResolver(ent, v), nil
	case func(p graphql.ResolveParams) (any, error):
		return r.wrapResolver(ent, v), nil
	default:
		return nil, fmt.Errorf("schema: entity %s: override %s must be a field descriptor or resolver function, got %T",
			ent.Name, name, raw)
	}
}

// wrapResolver turns a plain resolution function into a list-returning field
// with the default filter and pagination arguments.
func (r *Registry) wrapResolver(ent *entity.Entity, fn customs.ResolverFunc) *graphql.Field {
	return &graphql.Field{
		Type:    graphql.NewList(r.Output[ent.Name]),
		Args:    r.paginationArgs(ent),
		Resolve: graphql.FieldResolveFn(fn),
	}
}
