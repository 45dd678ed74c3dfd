// Package pg backs the store contract with PostgreSQL through pgx. Tables
// follow the plural snake_case convention derived from entity names; records
// travel as generic column maps so the schema layer never sees SQL.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/observability/tracing"
	"github.com/autogql/autogql/store"
)

// Pool exposes the subset of pgxpool behaviour the store needs. pgxmock
// connections satisfy it through a thin Close adapter.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// querier is the common surface of a pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Option configures pgx connections.
type Option func(*pgxpool.Config)

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConns = n }
}

// WithMinConns sets the minimum pool size.
func WithMinConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MinConns = n }
}

// WithMaxConnLifetime configures the maximum connection lifetime.
func WithMaxConnLifetime(d time.Duration) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConnLifetime = d }
}

// WithQueryTracing enables pgx statement tracing through the tracer facade.
func WithQueryTracing(tracer tracing.Tracer) Option {
	return func(cfg *pgxpool.Config) {
		if tracer == nil {
			cfg.ConnConfig.Tracer = nil
			return
		}
		cfg.ConnConfig.Tracer = newQueryTracer(tracer)
	}
}

// Connect initialises a pgx pool with optional configuration overrides.
func Connect(ctx context.Context, url string, opts ...Option) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Store implements store.Store on top of a Postgres pool.
type Store struct {
	pool Pool
	set  entity.Set
}

// New builds a store for the given entity set.
func New(pool Pool, set entity.Set) *Store {
	return &Store{pool: pool, set: set}
}

func (s *Store) entityOf(name string) (*entity.Entity, error) {
	ent, ok := s.set[name]
	if !ok || ent == nil {
		return nil, fmt.Errorf("pg: unknown entity %s", name)
	}
	return ent, nil
}

func (s *Store) pkColumn(name string) (string, error) {
	ent, err := s.entityOf(name)
	if err != nil {
		return "", err
	}
	pk, ok := ent.PrimaryKey()
	if !ok {
		return "", fmt.Errorf("pg: entity %s has no primary key", name)
	}
	return columnName(pk.Name), nil
}

// scanRecords drains the result set into column maps, translating column
// names back into field names. The window total column, when present, is
// split out instead of leaking into the records.
func scanRecords(rows pgx.Rows) ([]store.Record, int, error) {
	defer rows.Close()
	total := 0
	out := []store.Record{}
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, 0, err
		}
		rec := store.Record{}
		for i, fd := range fields {
			if fd.Name == "__total" {
				total = toInt(values[i])
				continue
			}
			rec[fieldName(fd.Name)] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func (s *Store) selectRecords(ctx context.Context, q querier, name string, spec selectSpec) ([]store.Record, int, error) {
	pkCol, err := s.pkColumn(name)
	if err != nil {
		return nil, 0, err
	}
	spec.Table = tableName(name)
	spec.PK = pkCol
	sql, args := buildSelect(spec)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return scanRecords(rows)
}

func (s *Store) FindOne(ctx context.Context, name string, preds []store.Predicate) (store.Record, error) {
	recs, _, err := s.selectRecords(ctx, s.pool, name, selectSpec{Predicates: preds, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *Store) FindAll(ctx context.Context, name string, q store.Query) ([]store.Record, error) {
	recs, _, err := s.selectRecords(ctx, s.pool, name, selectSpec{
		Predicates: q.Predicates,
		Orders:     q.Orders,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	return recs, err
}

func (s *Store) FindAndCount(ctx context.Context, name string, q store.Query) ([]store.Record, int, error) {
	recs, total, err := s.selectRecords(ctx, s.pool, name, selectSpec{
		Counted:    true,
		Predicates: q.Predicates,
		Orders:     q.Orders,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, 0, err
	}
	// A page past the end returns no rows, so the window total is absent
	// and a plain count resolves it.
	if len(recs) == 0 {
		sql, args := buildCount(tableName(name), q.Predicates)
		if err := s.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
			return nil, 0, err
		}
	}
	return recs, total, nil
}

// columnValues splits a record into storable column values, dropping nested
// association collections.
func columnValues(ent *entity.Entity, values store.Record) store.Record {
	out := store.Record{}
	for key, v := range values {
		if _, isAssoc := ent.Association(key); isAssoc {
			continue
		}
		out[key] = v
	}
	return out
}

func (s *Store) Create(ctx context.Context, name string, values store.Record, includes []store.Include) (store.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	created, err := s.createInTx(ctx, tx, name, values, includes)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) createInTx(ctx context.Context, q querier, name string, values store.Record, includes []store.Include) (store.Record, error) {
	ent, err := s.entityOf(name)
	if err != nil {
		return nil, err
	}
	pk, ok := ent.PrimaryKey()
	if !ok {
		return nil, fmt.Errorf("pg: entity %s has no primary key", name)
	}

	row := columnValues(ent, values)
	if _, present := row[pk.Name]; !present {
		row[pk.Name] = uuid.NewString()
	}
	sql, args := buildInsert(tableName(name), row)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	created, _, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("pg: insert into %s returned no row", tableName(name))
	}
	rec := created[0]

	for _, inc := range includes {
		raw, present := values[inc.Association]
		if !present {
			continue
		}
		assoc, ok := ent.Association(inc.Association)
		if !ok {
			continue
		}
		fk := foreignKeyField(ent.Name, assoc)
		for _, child := range childRecords(raw) {
			child = child.Clone()
			child[fk] = rec[pk.Name]
			if _, err := s.createInTx(ctx, q, assoc.Target, child, inc.Nested); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}

func childRecords(raw any) []store.Record {
	switch rows := raw.(type) {
	case []store.Record:
		return rows
	case []map[string]any:
		out := make([]store.Record, 0, len(rows))
		for _, r := range rows {
			out = append(out, store.Record(r))
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

func (s *Store) Update(ctx context.Context, name string, pk any, values store.Record) (store.Record, error) {
	ent, err := s.entityOf(name)
	if err != nil {
		return nil, err
	}
	pkCol, err := s.pkColumn(name)
	if err != nil {
		return nil, err
	}
	row := columnValues(ent, values)
	if len(row) == 0 {
		return s.FindOne(ctx, name, []store.Predicate{{Field: fieldName(pkCol), Op: store.OpEqual, Value: pk}})
	}
	sql, args := buildUpdate(tableName(name), pkCol, pk, row)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	updated, _, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("pg: %s %v not found", name, pk)
	}
	return updated[0], nil
}

func (s *Store) UpsertMany(ctx context.Context, name string, foreignKey string, ownerKey any, rows []store.Record) error {
	ent, err := s.entityOf(name)
	if err != nil {
		return err
	}
	pk, ok := ent.PrimaryKey()
	if !ok {
		return fmt.Errorf("pg: entity %s has no primary key", name)
	}
	pkCol := columnName(pk.Name)
	fkCol := columnName(foreignKey)
	table := tableName(name)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	keep := make([]any, 0, len(rows))
	for _, row := range rows {
		row = columnValues(ent, row.Clone())
		row[foreignKey] = ownerKey
		if _, present := row[pk.Name]; !present {
			row[pk.Name] = uuid.NewString()
		}
		sql, args := buildUpsert(table, pkCol, row)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		keep = append(keep, row[pk.Name])
	}
	sql, args := buildDeleteMissing(table, fkCol, pkCol, ownerKey, keep)
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, name string, pk any) (int, error) {
	pkCol, err := s.pkColumn(name)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, buildDelete(tableName(name), pkCol), pk)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) FindAssociated(ctx context.Context, owner string, record store.Record, assoc entity.Association) ([]store.Record, error) {
	ownerEnt, err := s.entityOf(owner)
	if err != nil {
		return nil, err
	}
	targetEnt, err := s.entityOf(assoc.Target)
	if err != nil {
		return nil, err
	}
	targetPK, ok := targetEnt.PrimaryKey()
	if !ok {
		return nil, fmt.Errorf("pg: entity %s has no primary key", assoc.Target)
	}
	ownerPK, ok := ownerEnt.PrimaryKey()
	if !ok {
		return nil, fmt.Errorf("pg: entity %s has no primary key", owner)
	}

	switch assoc.Kind {
	case entity.BelongsToKind:
		fk := assoc.ForeignKey
		if fk == "" {
			fk = assoc.Name + "Id"
		}
		key, present := record[fk]
		if !present || key == nil {
			return nil, nil
		}
		recs, _, err := s.selectRecords(ctx, s.pool, assoc.Target, selectSpec{
			Predicates: []store.Predicate{{Field: targetPK.Name, Op: store.OpEqual, Value: key}},
			Limit:      1,
		})
		return recs, err
	case entity.HasManyKind:
		fk := foreignKeyField(owner, assoc)
		recs, _, err := s.selectRecords(ctx, s.pool, assoc.Target, selectSpec{
			Predicates: []store.Predicate{{Field: fk, Op: store.OpEqual, Value: record[ownerPK.Name]}},
		})
		return recs, err
	case entity.BelongsToManyKind:
		sql := buildJoinSelect(
			tableName(assoc.Target), columnName(targetPK.Name),
			joinTable(owner, assoc.Target), joinColumn(owner), joinColumn(assoc.Target),
		)
		rows, err := s.pool.Query(ctx, sql, record[ownerPK.Name])
		if err != nil {
			return nil, err
		}
		recs, _, err := scanRecords(rows)
		return recs, err
	default:
		return nil, fmt.Errorf("pg: unsupported association kind %s", assoc.Kind)
	}
}

func foreignKeyField(owner string, assoc entity.Association) string {
	if assoc.ForeignKey != "" {
		return assoc.ForeignKey
	}
	return strcase.ToLowerCamel(owner) + "Id"
}
