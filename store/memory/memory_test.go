package memory

import (
	"context"
	"testing"

	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/store"
)

func testSet() entity.Set {
	return entity.Collect(
		entity.New("User",
			entity.ID("id").Primary(),
			entity.String("name"),
		).WithAssociations(
			entity.HasMany("orders", "Order"),
			entity.BelongsToMany("groups", "Group"),
		),
		entity.New("Order",
			entity.ID("id").Primary(),
			entity.String("userId"),
			entity.Float("total"),
		).WithAssociations(
			entity.BelongsTo("user", "User"),
			entity.HasMany("items", "Item"),
		),
		entity.New("Item",
			entity.ID("id").Primary(),
			entity.String("orderId"),
			entity.String("sku"),
		),
		entity.New("Group",
			entity.ID("id").Primary(),
			entity.String("name"),
		),
	)
}

func TestCreateCascadesIncludedCollections(t *testing.T) {
	s := New(testSet())
	ctx := context.Background()

	includes := []store.Include{{
		Association: "orders", Entity: "Order",
		Nested: []store.Include{{Association: "items", Entity: "Item"}},
	}}
	user, err := s.Create(ctx, "User", store.Record{
		"name": "ada",
		"orders": []store.Record{
			{"total": 9.5, "items": []store.Record{{"sku": "A-1"}, {"sku": "A-2"}}},
		},
	}, includes)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	orders, err := s.FindAssociated(ctx, "User", user, entity.HasMany("orders", "Order"))
	if err != nil {
		t.Fatalf("FindAssociated orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	items, err := s.FindAssociated(ctx, "Order", orders[0], entity.HasMany("items", "Item"))
	if err != nil {
		t.Fatalf("FindAssociated items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestUpsertManyReplacesMissingRows(t *testing.T) {
	s := New(testSet())
	ctx := context.Background()

	user, err := s.Create(ctx, "User", store.Record{"name": "ada"}, nil)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	ownerKey := user["id"]
	for _, total := range []float64{1, 2, 3} {
		if _, err := s.Create(ctx, "Order", store.Record{"userId": ownerKey, "total": total}, nil); err != nil {
			t.Fatalf("Create order: %v", err)
		}
	}
	existing, err := s.FindAll(ctx, "Order", store.Query{})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}

	// Keep the first row (updated), add one new, drop the other two.
	err = s.UpsertMany(ctx, "Order", "userId", ownerKey, []store.Record{
		{"id": existing[0]["id"], "total": 10.0},
		{"total": 4.0},
	})
	if err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}

	rows, count, err := s.FindAndCount(ctx, "Order", store.Query{})
	if err != nil {
		t.Fatalf("FindAndCount: %v", err)
	}
	if count != 2 || len(rows) != 2 {
		t.Fatalf("got %d rows (count %d), want 2", len(rows), count)
	}
	for _, row := range rows {
		if row["id"] == existing[0]["id"] && row["total"] != 10.0 {
			t.Fatalf("kept row not updated: %+v", row)
		}
	}
}

func TestDeleteReturnsAffectedCount(t *testing.T) {
	s := New(testSet())
	ctx := context.Background()

	user, err := s.Create(ctx, "User", store.Record{"name": "ada"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n, err := s.Delete(ctx, "User", user["id"]); err != nil || n != 1 {
		t.Fatalf("Delete existing = (%d, %v), want (1, nil)", n, err)
	}
	if n, err := s.Delete(ctx, "User", "missing"); err != nil || n != 0 {
		t.Fatalf("Delete missing = (%d, %v), want (0, nil)", n, err)
	}
}

func TestWildcardMatching(t *testing.T) {
	s := New(testSet())
	ctx := context.Background()
	for _, name := range []string{"Ada Lovelace", "Grace Hopper", "Adele"} {
		if _, err := s.Create(ctx, "User", store.Record{"name": name}, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := s.FindAll(ctx, "User", store.Query{Predicates: []store.Predicate{
		{Field: "name", Op: store.OpILike, Value: "ad%"},
	}})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows for ad%%, want 2", len(rows))
	}

	rows, err = s.FindAll(ctx, "User", store.Query{Predicates: []store.Predicate{
		{Field: "name", Op: store.OpEqual, Value: "Adele"},
	}})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows for exact match, want 1", len(rows))
	}
}

func TestBelongsToManyThroughLinks(t *testing.T) {
	s := New(testSet())
	ctx := context.Background()

	user, _ := s.Create(ctx, "User", store.Record{"name": "ada"}, nil)
	g1, _ := s.Create(ctx, "Group", store.Record{"name": "admins"}, nil)
	g2, _ := s.Create(ctx, "Group", store.Record{"name": "authors"}, nil)
	s.Link("User", "Group", user["id"], g1["id"])
	s.Link("User", "Group", user["id"], g2["id"])

	groups, err := s.FindAssociated(ctx, "User", user, entity.BelongsToMany("groups", "Group"))
	if err != nil {
		t.Fatalf("FindAssociated: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	// A link is traversable from both sides regardless of argument order.
	members, err := s.FindAssociated(ctx, "Group", g1, entity.BelongsToMany("members", "User"))
	if err != nil {
		t.Fatalf("FindAssociated reverse: %v", err)
	}
	if len(members) != 1 || members[0]["id"] != user["id"] {
		t.Fatalf("got members %v, want the linked user", members)
	}
}
