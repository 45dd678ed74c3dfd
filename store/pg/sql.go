package pg

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/autogql/autogql/store"
)

// Entity names map to plural snake_case tables, field names to snake_case
// columns. "OrderItem" becomes "order_items", "userId" becomes "user_id".

func tableName(entityName string) string {
	return inflection.Plural(strcase.ToSnake(entityName))
}

func columnName(field string) string { return strcase.ToSnake(field) }

func fieldName(column string) string { return strcase.ToLowerCamel(column) }

// joinTable names the link table for a many-to-many pair, independent of
// direction: "Post"/"Tag" and "Tag"/"Post" both give "post_tag".
func joinTable(left, right string) string {
	parts := []string{strcase.ToSnake(left), strcase.ToSnake(right)}
	sort.Strings(parts)
	return strings.Join(parts, "_")
}

func joinColumn(entityName string) string { return strcase.ToSnake(entityName) + "_id" }

type selectSpec struct {
	Table string
	// PK is the primary key column, used as the fallback sort so result
	// order stays deterministic.
	PK         string
	Counted    bool
	Predicates []store.Predicate
	Orders     []store.Order
	Limit      int
	Offset     int
}

func writePredicates(sb *strings.Builder, preds []store.Predicate, args *[]any, param int) int {
	if len(preds) == 0 {
		return param
	}
	sb.WriteString(" WHERE ")
	for i, pred := range preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(columnName(pred.Field))
		sb.WriteByte(' ')
		sb.WriteString(string(pred.Op))
		sb.WriteString(" $")
		sb.WriteString(strconv.Itoa(param))
		*args = append(*args, pred.Value)
		param++
	}
	return param
}

// buildSelect renders a SELECT with positional parameters. Counted selects
// carry the filtered row count on every row via a window aggregate, so the
// page and its total come from one statement.
func buildSelect(spec selectSpec) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT *")
	if spec.Counted {
		sb.WriteString(", COUNT(*) OVER() AS __total")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Table)

	args := make([]any, 0, len(spec.Predicates)+2)
	param := writePredicates(&sb, spec.Predicates, &args, 1)

	sb.WriteString(" ORDER BY ")
	if len(spec.Orders) == 0 {
		sb.WriteString(spec.PK)
		sb.WriteString(" ASC")
	}
	for i, order := range spec.Orders {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnName(order.Field))
		if order.Direction == store.Desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}

	if spec.Limit > 0 {
		sb.WriteString(" LIMIT $")
		sb.WriteString(strconv.Itoa(param))
		args = append(args, spec.Limit)
		param++
	}
	if spec.Offset > 0 {
		sb.WriteString(" OFFSET $")
		sb.WriteString(strconv.Itoa(param))
		args = append(args, spec.Offset)
	}
	return sb.String(), args
}

func buildCount(table string, preds []store.Predicate) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(table)
	args := make([]any, 0, len(preds))
	writePredicates(&sb, preds, &args, 1)
	return sb.String(), args
}

// sortedKeys keeps generated column lists deterministic.
func sortedKeys(rec store.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(table string, rec store.Record) (string, []any) {
	keys := sortedKeys(rec)
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	args := make([]any, 0, len(keys))
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnName(key))
		args = append(args, rec[key])
	}
	sb.WriteString(") VALUES (")
	for i := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(i + 1))
	}
	sb.WriteString(") RETURNING *")
	return sb.String(), args
}

// buildUpsert renders an insert that falls back to updating every non-key
// column when the primary key already exists.
func buildUpsert(table, pkColumn string, rec store.Record) (string, []any) {
	keys := sortedKeys(rec)
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	args := make([]any, 0, len(keys))
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnName(key))
		args = append(args, rec[key])
	}
	sb.WriteString(") VALUES (")
	for i := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(i + 1))
	}
	sb.WriteString(") ON CONFLICT (")
	sb.WriteString(pkColumn)
	sb.WriteString(") DO UPDATE SET ")
	first := true
	for _, key := range keys {
		col := columnName(key)
		if col == pkColumn {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(col)
		sb.WriteString(" = EXCLUDED.")
		sb.WriteString(col)
	}
	if first {
		// Key-only rows have nothing to update; keep the statement valid.
		sb.WriteString(pkColumn)
		sb.WriteString(" = EXCLUDED.")
		sb.WriteString(pkColumn)
	}
	return sb.String(), args
}

func buildUpdate(table, pkColumn string, pkValue any, rec store.Record) (string, []any) {
	keys := sortedKeys(rec)
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	args := make([]any, 0, len(keys)+1)
	for i, key := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(columnName(key))
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(i + 1))
		args = append(args, rec[key])
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(pkColumn)
	sb.WriteString(" = $")
	sb.WriteString(strconv.Itoa(len(keys) + 1))
	args = append(args, pkValue)
	sb.WriteString(" RETURNING *")
	return sb.String(), args
}

func buildDelete(table, pkColumn string) string {
	return "DELETE FROM " + table + " WHERE " + pkColumn + " = $1"
}

// buildDeleteMissing removes the owner's rows whose keys are absent from the
// reconciled set.
func buildDeleteMissing(table, fkColumn, pkColumn string, ownerKey any, keep []any) (string, []any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	sb.WriteString(fkColumn)
	sb.WriteString(" = $1")
	args := []any{ownerKey}
	if len(keep) > 0 {
		sb.WriteString(" AND ")
		sb.WriteString(pkColumn)
		sb.WriteString(" NOT IN (")
		for i, key := range keep {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i + 2))
			args = append(args, key)
		}
		sb.WriteString(")")
	}
	return sb.String(), args
}

func buildJoinSelect(targetTable, targetPK, join, ownerColumn, targetColumn string) string {
	var sb strings.Builder
	sb.WriteString("SELECT t.* FROM ")
	sb.WriteString(targetTable)
	sb.WriteString(" t JOIN ")
	sb.WriteString(join)
	sb.WriteString(" j ON j.")
	sb.WriteString(targetColumn)
	sb.WriteString(" = t.")
	sb.WriteString(targetPK)
	sb.WriteString(" WHERE j.")
	sb.WriteString(ownerColumn)
	sb.WriteString(" = $1 ORDER BY t.")
	sb.WriteString(targetPK)
	sb.WriteString(" ASC")
	return sb.String()
}
