package schema

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"golang.org/x/sync/errgroup"

	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/pubsub"
	"github.com/autogql/autogql/store"
)

// mutationRoot assembles the write API: add/update/delete per entity plus
// custom overrides. The cascade set is recomputed on every build so it
// reflects current metadata. broker is nil when subscriptions are disabled;
// no events are published then.
func (r *Registry) mutationRoot(broker pubsub.Broker, providers []customs.Provider) (*graphql.Object, error) {
	fields := graphql.Fields{}
	for _, ent := range r.set.Entities() {
		cascades, err := DeepAssociations(r.set, ent.Name)
		if err != nil {
			return nil, err
		}
		pk, _ := ent.PrimaryKey()
		fields[addFieldName(ent.Name)] = r.addField(ent, includesOf(cascades), broker)
		fields[updateFieldName(ent.Name)] = r.updateField(ent, pk, broker)
		fields[deleteFieldName(ent.Name)] = r.deleteField(ent, pk, broker)
	}
	if err := r.applyOverrides(fields, customs.KindMutation, providers); err != nil {
		return nil, err
	}
	return graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: fields}), nil
}

// publish sends one change event; events only exist while subscriptions are
// enabled, and never for failed mutations.
func (r *Registry) publish(ctx context.Context, broker pubsub.Broker, entityName string, v changeVerb, value any) error {
	if broker == nil {
		return nil
	}
	payload := store.Record{eventFieldName(entityName, v): value}
	return broker.Publish(ctx, topicName(entityName, v), payload)
}

func inputArg(ent *entity.Entity, p graphql.ResolveParams) (store.Record, error) {
	raw, ok := p.Args[typeName(ent.Name)].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: %s input argument is required", typeName(ent.Name))
	}
	return store.Record(raw), nil
}

func (r *Registry) addField(ent *entity.Entity, includes []store.Include, broker pubsub.Broker) *graphql.Field {
	fieldName := addFieldName(ent.Name)
	return &graphql.Field{
		Type: r.Output[ent.Name],
		Args: graphql.FieldConfigArgument{
			typeName(ent.Name): &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(r.Input[ent.Name]),
			},
		},
		Resolve: func(p graphql.ResolveParams) (out any, err error) {
			ctx, span := r.tracer.Start(p.Context, "mutation."+fieldName,
				tracing.String("entity", ent.Name))
			defer func() { span.End(err) }()

			input, err := inputArg(ent, p)
			if err != nil {
				return nil, err
			}
			created, err := r.store.Create(ctx, ent.Name, input, includes)
			if err != nil {
				return nil, err
			}
			if err := r.publish(ctx, broker, ent.Name, verbAdded, created); err != nil {
				return nil, err
			}
			return created, nil
		},
	}
}

func (r *Registry) updateField(ent *entity.Entity, pk entity.Attribute, broker pubsub.Broker) *graphql.Field {
	fieldName := updateFieldName(ent.Name)
	return &graphql.Field{
		Type: r.Output[ent.Name],
		Args: graphql.FieldConfigArgument{
			typeName(ent.Name): &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(r.Input[ent.Name]),
			},
		},
		Resolve: func(p graphql.ResolveParams) (out any, err error) {
			ctx, span := r.tracer.Start(p.Context, "mutation."+fieldName,
				tracing.String("entity", ent.Name))
			defer func() { span.End(err) }()

			input, err := inputArg(ent, p)
			if err != nil {
				return nil, err
			}
			pkValue, ok := input[pk.Name]
			if !ok || pkValue == nil {
				return nil, fmt.Errorf("schema: update%s requires %s", typeName(ent.Name), pk.Name)
			}
			pkPreds := []store.Predicate{{Field: pk.Name, Op: store.OpEqual, Value: pkValue}}
			existing, err := r.store.FindOne(ctx, ent.Name, pkPreds)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, fmt.Errorf("schema: %s %v not found", ent.Name, pkValue)
			}

			// Nested collections named in the input reconcile concurrently
			// with the parent's own scalar update; any failure aborts the
			// whole mutation before anything is published.
			g, gctx := errgroup.WithContext(ctx)
			for _, assoc := range ent.HasManys() {
				raw, present := input[assoc.Name]
				if !present {
					continue
				}
				assoc := assoc
				rows := recordsFromArg(raw)
				g.Go(func() error {
					return r.store.UpsertMany(gctx, assoc.Target, foreignKey(ent.Name, assoc), pkValue, rows)
				})
			}
			scalars := r.scalarValues(ent, input, pk)
			g.Go(func() error {
				_, err := r.store.Update(gctx, ent.Name, pkValue, scalars)
				return err
			})
			if err = g.Wait(); err != nil {
				return nil, err
			}

			// The event carries the in-memory snapshot; the caller gets the
			// refetched canonical record.
			snapshot := existing.Clone()
			for k, v := range scalars {
				snapshot[k] = v
			}
			refetched, err := r.store.FindOne(ctx, ent.Name, pkPreds)
			if err != nil {
				return nil, err
			}
			if err := r.publish(ctx, broker, ent.Name, verbUpdated, snapshot); err != nil {
				return nil, err
			}
			return refetched, nil
		},
	}
}

func (r *Registry) deleteField(ent *entity.Entity, pk entity.Attribute, broker pubsub.Broker) *graphql.Field {
	fieldName := deleteFieldName(ent.Name)
	return &graphql.Field{
		Type: graphql.Int,
		Args: graphql.FieldConfigArgument{
			pk.Name: &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(scalarType(pk)),
			},
		},
		Resolve: func(p graphql.ResolveParams) (out any, err error) {
			ctx, span := r.tracer.Start(p.Context, "mutation."+fieldName,
				tracing.String("entity", ent.Name))
			defer func() { span.End(err) }()

			pkValue := p.Args[pk.Name]
			count, err := r.store.Delete(ctx, ent.Name, pkValue)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				if err := r.publish(ctx, broker, ent.Name, verbDeleted, pkValue); err != nil {
					return nil, err
				}
			}
			return count, nil
		},
	}
}

// scalarValues keeps only the entity's own writable attribute values.
func (r *Registry) scalarValues(ent *entity.Entity, input store.Record, pk entity.Attribute) store.Record {
	out := store.Record{}
	for _, attr := range r.visibleAttrs(ent) {
		if attr.Name == pk.Name {
			continue
		}
		if v, ok := input[attr.Name]; ok {
			out[attr.Name] = v
		}
	}
	return out
}

// recordsFromArg normalises a nested-collection argument; the executor hands
// list arguments over as []any of maps.
func recordsFromArg(raw any) []store.Record {
	switch rows := raw.(type) {
	case []store.Record:
		return rows
	case []map[string]any:
		out := make([]store.Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, store.Record(row))
		}
		return out
	case []any:
		out := make([]store.Record, 0, len(rows))
		for _, item := range rows {
			if m, ok := item.(map[string]any); ok {
				out = append(out, store.Record(m))
			}
		}
		return out
	default:
		return nil
	}
}
