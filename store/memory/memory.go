// Package memory provides a reference in-memory Store used by tests, the
// example application, and as the conformance baseline for the reconciliation
// semantics documented on store.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"

	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/store"
)

// Store keeps every entity's rows in process memory, keyed by primary key.
type Store struct {
	mu     sync.RWMutex
	set    entity.Set
	tables map[string]map[string]store.Record
	// links holds BelongsToMany pairs keyed by join name, as
	// "<leftKey>/<rightKey>" sets.
	links map[string]map[string]struct{}
}

// New builds a store for the given entity set.
func New(set entity.Set) *Store {
	return &Store{
		set:    set,
		tables: map[string]map[string]store.Record{},
		links:  map[string]map[string]struct{}{},
	}
}

func (s *Store) entityOf(name string) (*entity.Entity, error) {
	ent, ok := s.set[name]
	if !ok || ent == nil {
		return nil, fmt.Errorf("memory: unknown entity %s", name)
	}
	return ent, nil
}

func (s *Store) pkName(name string) (string, error) {
	ent, err := s.entityOf(name)
	if err != nil {
		return "", err
	}
	pk, ok := ent.PrimaryKey()
	if !ok {
		return "", fmt.Errorf("memory: entity %s has no primary key", name)
	}
	return pk.Name, nil
}

func (s *Store) table(name string) map[string]store.Record {
	tbl, ok := s.tables[name]
	if !ok {
		tbl = map[string]store.Record{}
		s.tables[name] = tbl
	}
	return tbl
}

func keyString(v any) string { return fmt.Sprint(v) }

func matches(rec store.Record, preds []store.Predicate) bool {
	for _, pred := range preds {
		got, ok := rec[pred.Field]
		if !ok {
			return false
		}
		switch pred.Op {
		case store.OpILike:
			if !likeMatch(fmt.Sprint(got), fmt.Sprint(pred.Value)) {
				return false
			}
		default:
			if keyString(got) != keyString(pred.Value) {
				return false
			}
		}
	}
	return true
}

// likeMatch implements ILIKE with '%' wildcards, enough for filter patterns
// like "%smith", "smith%", and "%smi%".
func likeMatch(value, pattern string) bool {
	value = strings.ToLower(value)
	pattern = strings.ToLower(pattern)
	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return value == pattern
	}
	if parts[0] != "" && !strings.HasPrefix(value, parts[0]) {
		return false
	}
	if last := parts[len(parts)-1]; last != "" && !strings.HasSuffix(value, last) {
		return false
	}
	rest := value
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return true
}

func (s *Store) selectLocked(name string, q store.Query) []store.Record {
	rows := make([]store.Record, 0)
	for _, rec := range s.table(name) {
		if matches(rec, q.Predicates) {
			rows = append(rows, rec.Clone())
		}
	}
	pk, _ := s.pkName(name)
	sort.Slice(rows, func(i, j int) bool {
		return keyString(rows[i][pk]) < keyString(rows[j][pk])
	})
	for _, order := range q.Orders {
		order := order
		sort.SliceStable(rows, func(i, j int) bool {
			a := keyString(rows[i][order.Field])
			b := keyString(rows[j][order.Field])
			if order.Direction == store.Desc {
				return a > b
			}
			return a < b
		})
	}
	return rows
}

func page(rows []store.Record, limit, offset int) []store.Record {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func (s *Store) FindOne(ctx context.Context, name string, preds []store.Predicate) (store.Record, error) {
	if _, err := s.entityOf(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.selectLocked(name, store.Query{Predicates: preds})
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Store) FindAll(ctx context.Context, name string, q store.Query) ([]store.Record, error) {
	if _, err := s.entityOf(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.selectLocked(name, q), q.Limit, q.Offset), nil
}

func (s *Store) FindAndCount(ctx context.Context, name string, q store.Query) ([]store.Record, int, error) {
	if _, err := s.entityOf(name); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.selectLocked(name, q)
	return page(rows, q.Limit, q.Offset), len(rows), nil
}

func (s *Store) Create(ctx context.Context, name string, values store.Record, includes []store.Include) (store.Record, error) {
	if _, err := s.entityOf(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(name, values, includes)
}

func (s *Store) createLocked(name string, values store.Record, includes []store.Include) (store.Record, error) {
	ent, err := s.entityOf(name)
	if err != nil {
		return nil, err
	}
	pk, err := s.pkName(name)
	if err != nil {
		return nil, err
	}

	// Association keys hold nested collections, not column values; everything
	// else is stored as-is so foreign keys set by cascades survive.
	rec := store.Record{}
	for key, v := range values {
		if _, isAssoc := ent.Association(key); isAssoc {
			continue
		}
		rec[key] = v
	}
	if _, ok := rec[pk]; !ok {
		rec[pk] = uuid.NewString()
	}
	s.table(name)[keyString(rec[pk])] = rec.Clone()

	for _, inc := range includes {
		raw, ok := values[inc.Association]
		if !ok {
			continue
		}
		assoc, ok := ent.Association(inc.Association)
		if !ok {
			continue
		}
		fk := foreignKeyFor(ent.Name, assoc)
		for _, child := range toRecords(raw) {
			child = child.Clone()
			child[fk] = rec[pk]
			if _, err := s.createLocked(assoc.Target, child, inc.Nested); err != nil {
				return nil, err
			}
		}
	}
	return rec.Clone(), nil
}

func toRecords(raw any) []store.Record {
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
	pkName, err := s.pkName(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table(name)[keyString(pk)]
	if !ok {
		return nil, fmt.Errorf("memory: %s %v not found", name, pk)
	}
	for _, attr := range ent.Attributes {
		if attr.Name == pkName {
			continue
		}
		if v, ok := values[attr.Name]; ok {
			rec[attr.Name] = v
		}
	}
	return rec.Clone(), nil
}

func (s *Store) UpsertMany(ctx context.Context, name string, foreignKey string, ownerKey any, rows []store.Record) error {
	pkName, err := s.pkName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := map[string]struct{}{}
	for _, row := range rows {
		row = row.Clone()
		row[foreignKey] = ownerKey
		if key, ok := row[pkName]; ok {
			if existing, found := s.table(name)[keyString(key)]; found {
				for k, v := range row {
					existing[k] = v
				}
				keep[keyString(key)] = struct{}{}
				continue
			}
		}
		created, err := s.createLocked(name, row, nil)
		if err != nil {
			return err
		}
		keep[keyString(created[pkName])] = struct{}{}
	}

	// Replace-missing: rows still linked to the owner but absent from the
	// provided array are removed.
	for key, rec := range s.table(name) {
		if keyString(rec[foreignKey]) != keyString(ownerKey) {
			continue
		}
		if _, ok := keep[key]; !ok {
			delete(s.table(name), key)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string, pk any) (int, error) {
	if _, err := s.entityOf(name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.table(name)[keyString(pk)]; !ok {
		return 0, nil
	}
	delete(s.table(name), keyString(pk))
	return 1, nil
}

func (s *Store) FindAssociated(ctx context.Context, owner string, record store.Record, assoc entity.Association) ([]store.Record, error) {
	ownerEnt, err := s.entityOf(owner)
	if err != nil {
		return nil, err
	}
	if _, err := s.entityOf(assoc.Target); err != nil {
		return nil, err
	}
	ownerPK, err := s.pkName(owner)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	switch assoc.Kind {
	case entity.BelongsToKind:
		fk := assoc.ForeignKey
		if fk == "" {
			fk = assoc.Name + "Id"
		}
		targetPK, err := s.pkName(assoc.Target)
		if err != nil {
			return nil, err
		}
		key, ok := record[fk]
		if !ok || key == nil {
			return nil, nil
		}
		return s.selectLocked(assoc.Target, store.Query{Predicates: []store.Predicate{
			{Field: targetPK, Op: store.OpEqual, Value: key},
		}}), nil
	case entity.HasManyKind:
		fk := foreignKeyFor(ownerEnt.Name, assoc)
		return s.selectLocked(assoc.Target, store.Query{Predicates: []store.Predicate{
			{Field: fk, Op: store.OpEqual, Value: record[ownerPK]},
		}}), nil
	case entity.BelongsToManyKind:
		targetPK, err := s.pkName(assoc.Target)
		if err != nil {
			return nil, err
		}
		join := joinName(owner, assoc.Target)
		prefix := keyString(record[ownerPK]) + "/"
		out := []store.Record{}
		for pair := range s.links[join] {
			if !strings.HasPrefix(pair, prefix) {
				continue
			}
			rightKey := strings.TrimPrefix(pair, prefix)
			rows := s.selectLocked(assoc.Target, store.Query{Predicates: []store.Predicate{
				{Field: targetPK, Op: store.OpEqual, Value: rightKey},
			}})
			out = append(out, rows...)
		}
		sort.Slice(out, func(i, j int) bool {
			return keyString(out[i][targetPK]) < keyString(out[j][targetPK])
		})
		return out, nil
	default:
		return nil, fmt.Errorf("memory: unsupported association kind %s", assoc.Kind)
	}
}

// Link records a BelongsToMany pair between two entities' rows. joinName
// sorts the entity names, so both sides share one set; the pair is stored in
// both orientations so lookups from either side prefix-match their own key.
func (s *Store) Link(left, right string, leftKey, rightKey any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	join := joinName(left, right)
	if s.links[join] == nil {
		s.links[join] = map[string]struct{}{}
	}
	s.links[join][keyString(leftKey)+"/"+keyString(rightKey)] = struct{}{}
	s.links[join][keyString(rightKey)+"/"+keyString(leftKey)] = struct{}{}
}

// foreignKeyFor names the attribute on the target that points back at the
// owner for HasMany collections.
func foreignKeyFor(owner string, assoc entity.Association) string {
	if assoc.ForeignKey != "" {
		return assoc.ForeignKey
	}
	return strcase.ToLowerCamel(owner) + "Id"
}

func joinName(left, right string) string {
	parts := []string{left, right}
	sort.Strings(parts)
	return strings.Join(parts, "_")
}
