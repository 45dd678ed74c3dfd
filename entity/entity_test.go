package entity

import "testing"

func TestAttributeBuilders(t *testing.T) {
	attr := String("email").Optional().Sensitive()
	if attr.Name != "email" || attr.Type != TypeString {
		t.Fatalf("unexpected attribute: %+v", attr)
	}
	if !attr.Nullable || !attr.IsSensitive || attr.IsPrimary {
		t.Fatalf("unexpected flags: %+v", attr)
	}

	pk := ID("id").Primary()
	if !pk.IsPrimary || pk.Type != TypeID {
		t.Fatalf("unexpected primary key: %+v", pk)
	}
}

func TestEntityAccessors(t *testing.T) {
	ent := New("Order",
		ID("id").Primary(),
		Float("total"),
	).WithAssociations(
		BelongsTo("customer", "User").Key("buyerId"),
		HasMany("items", "OrderItem"),
	)

	pk, ok := ent.PrimaryKey()
	if !ok || pk.Name != "id" {
		t.Fatalf("unexpected primary key: %+v", pk)
	}
	if _, ok := ent.Attribute("total"); !ok {
		t.Fatalf("missing total attribute")
	}
	assoc, ok := ent.Association("customer")
	if !ok || assoc.Kind != BelongsToKind || assoc.ForeignKey != "buyerId" {
		t.Fatalf("unexpected association: %+v", assoc)
	}

	hasManys := ent.HasManys()
	if len(hasManys) != 1 || hasManys[0].Target != "OrderItem" {
		t.Fatalf("unexpected hasMany set: %+v", hasManys)
	}
}

func TestCollectSkipsReservedEntries(t *testing.T) {
	set := Collect(
		New("User", ID("id").Primary()),
		New("_internal", ID("id").Primary()),
		nil,
		New("Order", ID("id").Primary()),
	)
	entities := set.Entities()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Name != "Order" || entities[1].Name != "User" {
		t.Fatalf("expected sorted order, got %v, %v", entities[0].Name, entities[1].Name)
	}
}
