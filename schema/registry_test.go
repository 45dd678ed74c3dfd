package schema

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"

	"github.com/autogql/autogql/batch"
	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/store"
	"github.com/autogql/autogql/store/memory"
)

func newTestRegistry(t *testing.T, set entity.Set) *Registry {
	t.Helper()
	reg, err := NewRegistry(set, memory.New(set), tracing.NoopTracer{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestRegistrySensitiveFieldsExcluded(t *testing.T) {
	reg := newTestRegistry(t, blogSet())

	out := reg.Output["User"].Fields()
	if _, ok := out["password"]; ok {
		t.Fatalf("sensitive attribute present on output type")
	}
	if _, ok := out["name"]; !ok {
		t.Fatalf("expected name field on output type")
	}

	in := reg.Input["User"].Fields()
	if _, ok := in["password"]; ok {
		t.Fatalf("sensitive attribute present on input type")
	}
}

func TestRegistryAssociationFieldShapes(t *testing.T) {
	reg := newTestRegistry(t, blogSet())

	post := reg.Output["Post"].Fields()
	if _, ok := post["author"].Type.(*graphql.Object); !ok {
		t.Fatalf("expected single reference for belongsTo, got %T", post["author"].Type)
	}
	if _, ok := post["comments"].Type.(*graphql.List); !ok {
		t.Fatalf("expected list for hasMany, got %T", post["comments"].Type)
	}

	in := reg.Input["Post"].Fields()
	if _, ok := in["comments"].Type.(*graphql.List); !ok {
		t.Fatalf("expected list input for hasMany, got %T", in["comments"].Type)
	}
	if _, ok := in["author"].Type.(*graphql.InputObject); !ok {
		t.Fatalf("expected single input for belongsTo, got %T", in["author"].Type)
	}
}

func TestRegistryNonNullForRequiredAttributes(t *testing.T) {
	reg := newTestRegistry(t, blogSet())

	out := reg.Output["User"].Fields()
	if _, ok := out["name"].Type.(*graphql.NonNull); !ok {
		t.Fatalf("expected non-null for required attribute, got %T", out["name"].Type)
	}
	if _, ok := out["email"].Type.(*graphql.NonNull); ok {
		t.Fatalf("optional attribute must stay nullable")
	}

	// Input fields are always optional so partial updates stay expressible.
	in := reg.Input["User"].Fields()
	if _, ok := in["name"].Type.(*graphql.NonNull); ok {
		t.Fatalf("input field must not be non-null")
	}
}

func TestRegistryMutualReferences(t *testing.T) {
	// Two entities referencing each other must build; field thunks resolve
	// the forward reference on first read.
	set := entity.Collect(
		entity.New("Author",
			entity.ID("id").Primary(),
			entity.String("name"),
		).WithAssociations(entity.HasMany("books", "Book")),
		entity.New("Book",
			entity.ID("id").Primary(),
			entity.String("title"),
		).WithAssociations(entity.BelongsTo("author", "Author")),
	)
	reg := newTestRegistry(t, set)

	if typ := reg.Output["Author"].Fields()["books"].Type; typ == nil {
		t.Fatalf("missing books field type")
	}
	if typ := reg.Output["Book"].Fields()["author"].Type; typ != reg.Output["Author"] {
		t.Fatalf("author field must reference the registered Author type, got %v", typ)
	}
}

func TestRegistryRejectsInvalidMetadata(t *testing.T) {
	set := entity.Collect(
		entity.New("Orphan", entity.String("name")), // no primary key
	)
	if _, err := NewRegistry(set, memory.New(set), nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRegistryRequiresStore(t *testing.T) {
	if _, err := NewRegistry(blogSet(), nil, nil); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

// countingStore tracks related-record fetches so tests can observe whether a
// resolution was served by the store or by the request cache.
type countingStore struct {
	recordingStore
	posts      []store.Record
	associated int
}

func (c *countingStore) FindAssociated(ctx context.Context, owner string, record store.Record, assoc entity.Association) ([]store.Record, error) {
	c.associated++
	return c.posts, nil
}

func TestAssociationResolutionUsesRequestCache(t *testing.T) {
	st := &countingStore{posts: []store.Record{{"id": "p1", "title": "first"}}}
	st.rows = []store.Record{{"id": "u1", "name": "ada"}}
	s := buildSchema(t, Options{Store: st})

	query := `{
		a: user(id: "u1") { posts { id } }
		b: user(id: "u1") { posts { id } }
	}`

	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: query,
		Context:       batch.WithCache(context.Background()),
	})
	if len(result.Errors) > 0 {
		t.Fatalf("execute: %v", result.Errors)
	}
	if st.associated != 1 {
		t.Fatalf("expected one related fetch with the request cache, got %d", st.associated)
	}
	data, _ := result.Data.(map[string]any)
	for _, alias := range []string{"a", "b"} {
		user, _ := data[alias].(map[string]any)
		posts, _ := user["posts"].([]any)
		if len(posts) != 1 {
			t.Fatalf("alias %s: expected 1 post, got %#v", alias, user["posts"])
		}
	}

	// Without a cache on the context every resolution reaches the store.
	st.associated = 0
	result = graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: query,
		Context:       context.Background(),
	})
	if len(result.Errors) > 0 {
		t.Fatalf("execute without cache: %v", result.Errors)
	}
	if st.associated != 2 {
		t.Fatalf("expected two related fetches without the cache, got %d", st.associated)
	}
}
