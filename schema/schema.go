package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/customs"
	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/pubsub"
	"github.com/autogql/autogql/store"
)

// Options configures one schema build.
type Options struct {
	// Store resolves all reads and writes. Required.
	Store store.Store

	// PubSub carries change events. Defaults to the process-wide in-memory
	// broker when Subscriptions is set.
	PubSub pubsub.Broker

	// Subscriptions enables the subscription root and event publishing.
	Subscriptions bool

	// CustomsDir, when set, is scanned for resolver descriptors that
	// override or extend the generated fields.
	CustomsDir string

	// Customs resolves descriptor resolver names to functions. Required
	// when CustomsDir is set and descriptors reference named resolvers.
	Customs *customs.Registry

	// Providers are additional custom-resolver sources, applied before the
	// entities' inline overrides.
	Providers []customs.Provider

	Tracer tracing.Tracer
}

// Assemble derives an executable GraphQL schema from the entity set. The
// build fails on invalid metadata rather than producing a partial schema.
func Assemble(set entity.Set, opts Options) (graphql.Schema, error) {
	reg, err := NewRegistry(set, opts.Store, opts.Tracer)
	if err != nil {
		return graphql.Schema{}, err
	}

	providers := make([]customs.Provider, 0, len(opts.Providers)+1)
	providers = append(providers, opts.Providers...)
	if opts.CustomsDir != "" {
		providers = append(providers, &customs.DirProvider{
			Dir:      opts.CustomsDir,
			Registry: opts.Customs,
		})
	}

	var broker pubsub.Broker
	if opts.Subscriptions {
		broker = opts.PubSub
		if broker == nil {
			broker = pubsub.Default()
		}
	}

	query, err := reg.queryRoot(providers)
	if err != nil {
		return graphql.Schema{}, err
	}
	mutation, err := reg.mutationRoot(broker, providers)
	if err != nil {
		return graphql.Schema{}, err
	}

	cfg := graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	}
	if opts.Subscriptions {
		cfg.Subscription = reg.subscriptionRoot(broker)
	}
	return graphql.NewSchema(cfg)
}
