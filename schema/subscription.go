package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/pubsub"
)

// subscriptionRoot assembles the change-event API: per entity one field for
// each mutation kind, streaming the payloads published by the mutation
// resolvers.
func (r *Registry) subscriptionRoot(broker pubsub.Broker) *graphql.Object {
	fields := graphql.Fields{}
	for _, ent := range r.set.Entities() {
		pk, _ := ent.PrimaryKey()
		fields[eventFieldName(ent.Name, verbAdded)] = r.eventField(ent, verbAdded, r.Output[ent.Name], broker)
		fields[eventFieldName(ent.Name, verbUpdated)] = r.eventField(ent, verbUpdated, r.Output[ent.Name], broker)
		fields[eventFieldName(ent.Name, verbDeleted)] = r.eventField(ent, verbDeleted, scalarType(pk), broker)
	}
	return graphql.NewObject(graphql.ObjectConfig{Name: "Subscription", Fields: fields})
}

// eventField streams one topic. Subscribe pipes bus messages into the
// executor; Resolve unwraps the payload envelope so the field delivers the
// record (or deleted key) directly.
func (r *Registry) eventField(ent *entity.Entity, v changeVerb, typ graphql.Output, broker pubsub.Broker) *graphql.Field {
	fieldName := eventFieldName(ent.Name, v)
	topic := topicName(ent.Name, v)
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if rec, ok := toRecord(p.Source); ok {
				if value, present := rec[fieldName]; present {
					return value, nil
				}
			}
			return p.Source, nil
		},
		Subscribe: func(p graphql.ResolveParams) (any, error) {
			events, stop, err := broker.Subscribe(p.Context, topic)
			if err != nil {
				return nil, err
			}
			out := make(chan interface{})
			go func() {
				defer stop()
				defer close(out)
				for {
					select {
					case <-p.Context.Done():
						return
					case msg, ok := <-events:
						if !ok {
							return
						}
						select {
						case out <- msg:
						case <-p.Context.Done():
							return
						}
					}
				}
			}()
			return out, nil
		},
	}
}

// Topics lists every bus topic the schema publishes for the given set, in
// entity order. External consumers can subscribe directly without rebuilding
// the naming rules.
func Topics(set entity.Set) []string {
	out := make([]string, 0, len(set)*3)
	for _, ent := range set.Entities() {
		out = append(out,
			topicName(ent.Name, verbAdded),
			topicName(ent.Name, verbUpdated),
			topicName(ent.Name, verbDeleted),
		)
	}
	return out
}
