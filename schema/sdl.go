package schema

import (
	"fmt"
	"strings"

	"github.com/autogql/autogql/entity"
)

// RenderSDL prints the schema the assembler would build as SDL text, without
// needing a store or broker. Output is deterministic: entities in sorted
// order, fields in declaration order. Mainly for inspection and diffing.
func RenderSDL(set entity.Set, withSubscriptions bool) (string, error) {
	if err := entity.Validate(set); err != nil {
		return "", fmt.Errorf("schema: invalid entity metadata: %w", err)
	}

	var b strings.Builder
	if usesDateTime(set) {
		b.WriteString("scalar DateTime\n\n")
	}

	for _, ent := range set.Entities() {
		renderObjectType(&b, set, ent)
		b.WriteString("\n")
		renderInputType(&b, ent)
		b.WriteString("\n")
		renderResultSetType(&b, ent)
		b.WriteString("\n")
	}

	b.WriteString("type ResultInfo {\n  total: Int\n  pageSize: Int\n  page: Int\n}\n\n")

	renderQueryType(&b, set)
	b.WriteString("\n")
	renderMutationType(&b, set)
	if withSubscriptions {
		b.WriteString("\n")
		renderSubscriptionType(&b, set)
	}
	return b.String(), nil
}

func usesDateTime(set entity.Set) bool {
	for _, ent := range set.Entities() {
		for _, attr := range ent.Attributes {
			if attr.Type == entity.TypeDateTime {
				return true
			}
		}
	}
	return false
}

func sdlScalar(attr entity.Attribute) string {
	switch attr.Type {
	case entity.TypeID:
		return "ID"
	case entity.TypeInt:
		return "Int"
	case entity.TypeFloat:
		return "Float"
	case entity.TypeBoolean:
		return "Boolean"
	case entity.TypeDateTime:
		return "DateTime"
	default:
		return "String"
	}
}

func renderObjectType(b *strings.Builder, set entity.Set, ent *entity.Entity) {
	fmt.Fprintf(b, "type %s {\n", typeName(ent.Name))
	for _, attr := range ent.Attributes {
		if attr.IsSensitive {
			continue
		}
		typ := sdlScalar(attr)
		if !attr.Nullable {
			typ += "!"
		}
		fmt.Fprintf(b, "  %s: %s\n", attr.Name, typ)
	}
	for _, assoc := range ent.Associations {
		if _, ok := set[assoc.Target]; !ok {
			continue
		}
		typ := typeName(assoc.Target)
		if assoc.Kind != entity.BelongsToKind {
			typ = "[" + typ + "]"
		}
		fmt.Fprintf(b, "  %s: %s\n", assoc.Name, typ)
	}
	b.WriteString("}\n")
}

func renderInputType(b *strings.Builder, ent *entity.Entity) {
	fmt.Fprintf(b, "input %s {\n", inputTypeName(ent.Name))
	for _, attr := range ent.Attributes {
		if attr.IsSensitive {
			continue
		}
		fmt.Fprintf(b, "  %s: %s\n", attr.Name, sdlScalar(attr))
	}
	for _, assoc := range ent.Associations {
		typ := inputTypeName(assoc.Target)
		if assoc.Kind != entity.BelongsToKind {
			typ = "[" + typ + "]"
		}
		fmt.Fprintf(b, "  %s: %s\n", assoc.Name, typ)
	}
	b.WriteString("}\n")
}

func renderResultSetType(b *strings.Builder, ent *entity.Entity) {
	fmt.Fprintf(b, "type %sResultSet {\n  info: ResultInfo\n  results: [%s]\n}\n",
		typeName(ent.Name), typeName(ent.Name))
}

func renderFilterArgs(ent *entity.Entity, paginated bool) string {
	parts := make([]string, 0, len(ent.Attributes)+3)
	for _, attr := range ent.Attributes {
		if attr.IsSensitive {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", attr.Name, sdlScalar(attr)))
	}
	if paginated {
		parts = append(parts, "page: Int", "pageSize: Int", "order: String")
	}
	return strings.Join(parts, ", ")
}

func renderQueryType(b *strings.Builder, set entity.Set) {
	b.WriteString("type Query {\n")
	for _, ent := range set.Entities() {
		fmt.Fprintf(b, "  %s(%s): %s\n", singularField(ent.Name), renderFilterArgs(ent, false), typeName(ent.Name))
		fmt.Fprintf(b, "  %s(%s): [%s]\n", pluralField(ent.Name), renderFilterArgs(ent, false), typeName(ent.Name))
		fmt.Fprintf(b, "  %s(%s): %sResultSet\n", restfulField(ent.Name), renderFilterArgs(ent, true), typeName(ent.Name))
	}
	b.WriteString("}\n")
}

func renderMutationType(b *strings.Builder, set entity.Set) {
	b.WriteString("type Mutation {\n")
	for _, ent := range set.Entities() {
		pk, _ := ent.PrimaryKey()
		arg := fmt.Sprintf("%s: %s!", typeName(ent.Name), inputTypeName(ent.Name))
		fmt.Fprintf(b, "  %s(%s): %s\n", addFieldName(ent.Name), arg, typeName(ent.Name))
		fmt.Fprintf(b, "  %s(%s): %s\n", updateFieldName(ent.Name), arg, typeName(ent.Name))
		fmt.Fprintf(b, "  %s(%s: %s!): Int\n", deleteFieldName(ent.Name), pk.Name, sdlScalar(pk))
	}
	b.WriteString("}\n")
}

func renderSubscriptionType(b *strings.Builder, set entity.Set) {
	b.WriteString("type Subscription {\n")
	for _, ent := range set.Entities() {
		pk, _ := ent.PrimaryKey()
		fmt.Fprintf(b, "  %s: %s\n", eventFieldName(ent.Name, verbAdded), typeName(ent.Name))
		fmt.Fprintf(b, "  %s: %s\n", eventFieldName(ent.Name, verbUpdated), typeName(ent.Name))
		fmt.Fprintf(b, "  %s: %s\n", eventFieldName(ent.Name, verbDeleted), sdlScalar(pk))
	}
	b.WriteString("}\n")
}
