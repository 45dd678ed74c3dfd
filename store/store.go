// Package store defines the persistence contract the schema engine delegates
// to. The engine never touches storage directly: every read and write a
// resolver performs goes through Store, and the engine applies no
// transactional guarantees of its own beyond what the implementation offers.
package store

import (
	"context"

	"github.com/autogql/autogql/entity"
)

// Record is one row keyed by attribute name.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

type Op string

const (
	OpEqual Op = "="
	// OpILike requests case-insensitive pattern matching; predicate values
	// carry the wildcard marker '%'.
	OpILike Op = "ILIKE"
)

type Predicate struct {
	Field string
	Op    Op
	Value any
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type Order struct {
	Field     string
	Direction Direction
}

// Query bundles the selection criteria for list reads.
type Query struct {
	Predicates []Predicate
	Orders     []Order
	Limit      int
	Offset     int
}

// Include names a nested collection to create alongside its owner. Nested
// levels mirror the deep-association cascade of the owning entity.
type Include struct {
	Association string
	Entity      string
	Nested      []Include
}

// Store is the storage collaborator contract.
//
// UpsertMany reconciles a nested collection against the provided rows with
// replace-missing semantics: rows carrying a primary key are updated, rows
// without one are created and linked to the owner, and rows currently linked
// to the owner but absent from the array are deleted. Implementations that
// diverge must document it.
type Store interface {
	// FindOne returns the first record matching the predicates, or nil.
	FindOne(ctx context.Context, entityName string, preds []Predicate) (Record, error)
	// FindAll returns the records matching the query.
	FindAll(ctx context.Context, entityName string, q Query) ([]Record, error)
	// FindAndCount atomically counts matches and fetches the requested page.
	FindAndCount(ctx context.Context, entityName string, q Query) ([]Record, int, error)
	// Create inserts a record, creating any nested collections named by the
	// includes in the same logical operation.
	Create(ctx context.Context, entityName string, values Record, includes []Include) (Record, error)
	// Update writes the scalar values of the record identified by pk and
	// returns the stored row.
	Update(ctx context.Context, entityName string, pk any, values Record) (Record, error)
	// UpsertMany reconciles the rows of an owned collection; see the
	// interface comment for the replace-missing contract.
	UpsertMany(ctx context.Context, entityName string, foreignKey string, ownerKey any, rows []Record) error
	// Delete removes the record identified by pk, returning the affected
	// row count (0 or 1).
	Delete(ctx context.Context, entityName string, pk any) (int, error)
	// FindAssociated fetches the records related to owner through assoc.
	// Join-table mechanics for BelongsToMany stay inside the store.
	FindAssociated(ctx context.Context, owner string, record Record, assoc entity.Association) ([]Record, error)
}
