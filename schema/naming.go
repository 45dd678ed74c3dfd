package schema

import (
	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/autogql/autogql/entity"
)

// Field and type names are derived deterministically from entity names; the
// string transforms themselves are delegated to strcase and inflection.

func typeName(name string) string      { return strcase.ToCamel(name) }
func inputTypeName(name string) string { return typeName(name) + "Input" }

func singularField(name string) string { return strcase.ToLowerCamel(name) }
func pluralField(name string) string   { return strcase.ToLowerCamel(inflection.Plural(name)) }
func restfulField(name string) string  { return singularField(name) + "Restful" }

func addFieldName(name string) string    { return "add" + typeName(name) }
func updateFieldName(name string) string { return "update" + typeName(name) }
func deleteFieldName(name string) string { return "delete" + typeName(name) }

// changeVerb pairs the topic suffix with the payload field suffix for one
// mutation kind.
type changeVerb struct {
	topic string
	field string
}

var (
	verbAdded   = changeVerb{topic: "ADDED", field: "Added"}
	verbUpdated = changeVerb{topic: "UPDATED", field: "Updated"}
	verbDeleted = changeVerb{topic: "DELETED", field: "Deleted"}
)

// topicName yields the bus topic, e.g. "ORDER_ITEM_ADDED" for OrderItem.
func topicName(entityName string, v changeVerb) string {
	return strcase.ToScreamingSnake(entityName) + "_" + v.topic
}

// eventFieldName yields the payload key, e.g. "orderItemAdded".
func eventFieldName(entityName string, v changeVerb) string {
	return singularField(entityName) + v.field
}

// foreignKey names the attribute on a HasMany target that points back at the
// owner.
func foreignKey(owner string, assoc entity.Association) string {
	if assoc.ForeignKey != "" {
		return assoc.ForeignKey
	}
	return strcase.ToLowerCamel(owner) + "Id"
}
