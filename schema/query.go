package schema

import (
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/store"
)

const defaultPageSize = 10

// queryRoot assembles the read API: per entity a get-by-filter field, a list
// field, and a paginated "restful" field, with custom overrides layered on
// top.
func (r *Registry) queryRoot(providers []customs.Provider) (*graphql.Object, error) {
	fields := graphql.Fields{}
	for _, ent := range r.set.Entities() {
		fields[singularField(ent.Name)] = r.singularQueryField(ent)
		fields[pluralField(ent.Name)] = r.pluralQueryField(ent)
		fields[restfulField(ent.Name)] = r.restfulQueryField(ent)
	}
	if err := r.applyOverrides(fields, customs.KindQuery, providers); err != nil {
		return nil, err
	}
	return graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: fields}), nil
}

// filterArgs exposes every visible scalar attribute as an optional argument.
func (r *Registry) filterArgs(ent *entity.Entity) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, attr := range r.visibleAttrs(ent) {
		args[attr.Name] = &graphql.ArgumentConfig{Type: scalarType(attr)}
	}
	return args
}

func (r *Registry) paginationArgs(ent *entity.Entity) graphql.FieldConfigArgument {
	args := r.filterArgs(ent)
	args["page"] = &graphql.ArgumentConfig{Type: graphql.Int}
	args["pageSize"] = &graphql.ArgumentConfig{Type: graphql.Int}
	args["order"] = &graphql.ArgumentConfig{Type: graphql.String}
	return args
}

// predicates rewrites filter arguments into store predicates. A string value
// carrying the wildcard marker becomes a pattern match; everything else is
// exact equality.
func (r *Registry) predicates(ent *entity.Entity, args map[string]any) []store.Predicate {
	preds := make([]store.Predicate, 0, len(args))
	for _, attr := range r.visibleAttrs(ent) {
		value, ok := args[attr.Name]
		if !ok || value == nil {
			continue
		}
		op := store.OpEqual
		if s, isString := value.(string); isString && strings.Contains(s, "%") {
			op = store.OpILike
		}
		preds = append(preds, store.Predicate{Field: attr.Name, Op: op, Value: value})
	}
	return preds
}

func parseOrder(raw any) []store.Order {
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	orders := make([]store.Order, 0, 1)
	for _, part := range strings.Split(s, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		order := store.Order{Field: tokens[0], Direction: store.Asc}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "desc") {
			order.Direction = store.Desc
		}
		orders = append(orders, order)
	}
	return orders
}

func (r *Registry) singularQueryField(ent *entity.Entity) *graphql.Field {
	return &graphql.Field{
		Type: r.Output[ent.Name],
		Args: r.filterArgs(ent),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			rec, err := r.store.FindOne(p.Context, ent.Name, r.predicates(ent, p.Args))
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, nil
			}
			return rec, nil
		},
	}
}

func (r *Registry) pluralQueryField(ent *entity.Entity) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewList(r.Output[ent.Name]),
		Args: r.filterArgs(ent),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			return r.store.FindAll(p.Context, ent.Name, store.Query{
				Predicates: r.predicates(ent, p.Args),
			})
		},
	}
}

// infoType is the shared {total, pageSize, page} object.
func (r *Registry) infoType() *graphql.Object {
	if r.info == nil {
		r.info = graphql.NewObject(graphql.ObjectConfig{
			Name: "ResultInfo",
			Fields: graphql.Fields{
				"total":    &graphql.Field{Type: graphql.Int, Resolve: fieldOf("total")},
				"pageSize": &graphql.Field{Type: graphql.Int, Resolve: fieldOf("pageSize")},
				"page":     &graphql.Field{Type: graphql.Int, Resolve: fieldOf("page")},
			},
		})
	}
	return r.info
}

func (r *Registry) resultSetType(ent *entity.Entity) *graphql.Object {
	if existing, ok := r.resultSets[ent.Name]; ok {
		return existing
	}
	rs := graphql.NewObject(graphql.ObjectConfig{
		Name: typeName(ent.Name) + "ResultSet",
		Fields: graphql.Fields{
			"info":    &graphql.Field{Type: r.infoType(), Resolve: fieldOf("info")},
			"results": &graphql.Field{Type: graphql.NewList(r.Output[ent.Name]), Resolve: fieldOf("results")},
		},
	})
	r.resultSets[ent.Name] = rs
	return rs
}

func (r *Registry) restfulQueryField(ent *entity.Entity) *graphql.Field {
	fieldName := restfulField(ent.Name)
	return &graphql.Field{
		Type: r.resultSetType(ent),
		Args: r.paginationArgs(ent),
		Resolve: func(p graphql.ResolveParams) (out any, err error) {
			ctx, span := r.tracer.Start(p.Context, "query."+fieldName,
				tracing.String("entity", ent.Name))
			defer func() { span.End(err) }()

			pageSize := defaultPageSize
			if v, ok := p.Args["pageSize"].(int); ok && v > 0 {
				pageSize = v
			}
			page := 1
			if v, ok := p.Args["page"].(int); ok && v > 0 {
				page = v
			}
			q := store.Query{
				Predicates: r.predicates(ent, p.Args),
				Orders:     parseOrder(p.Args["order"]),
				Limit:      pageSize,
				Offset:     (page - 1) * pageSize,
			}
			rows, total, err := r.store.FindAndCount(ctx, ent.Name, q)
			if err != nil {
				return nil, err
			}
			return store.Record{
				"info": store.Record{
					"total":    total,
					"pageSize": pageSize,
					"page":     page,
				},
				"results": rows,
			}, nil
		},
	}
}
