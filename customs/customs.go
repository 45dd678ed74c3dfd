// Package customs supplies custom resolver overrides merged into the
// generated schema. Overrides arrive from two places: inline entity metadata
// (handled by the schema layer) and providers discovered here. A provider
// yields either a complete field descriptor, used verbatim, or a plain
// resolution function the schema layer wraps into a list-returning field.
package customs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/graphql-go/graphql"
)

// Kind selects which root a resolver extends.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// ResolverFunc is a plain resolution function override.
type ResolverFunc func(p graphql.ResolveParams) (any, error)

// Named is one discovered override. Exactly one of Field or Resolver is set;
// Entity names the output element type used when wrapping a Resolver.
type Named struct {
	Name     string
	Field    *graphql.Field
	Resolver ResolverFunc
	Entity   string
}

// Provider lists the overrides for one root kind. The engine never inspects
// a file system itself; discovery mechanics live behind this interface.
type Provider interface {
	ListResolvers(kind Kind) ([]Named, error)
}

// Registry maps resolver names to functions so declarative descriptors (see
// DirProvider) can reference code registered by the embedding program.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ResolverFunc
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[string]ResolverFunc{}}
}

// Register binds a resolver function to a name. Re-registering a name
// replaces the previous binding.
func (r *Registry) Register(name string, fn ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (ResolverFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Static is a fixed-content Provider, convenient for tests and for programs
// assembling overrides in code.
type Static struct {
	Query    []Named
	Mutation []Named
}

func (s Static) ListResolvers(kind Kind) ([]Named, error) {
	switch kind {
	case KindQuery:
		return s.Query, nil
	case KindMutation:
		return s.Mutation, nil
	default:
		return nil, fmt.Errorf("customs: unknown kind %q", kind)
	}
}
