package match

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm/schema"
)

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// keyColumn is one resolved key mapping.
type keyColumn struct {
	// itemField is the mapping's item field name; empty when the item is the key.
	itemField string
	// itemIndex is the reflect field path on the item struct; nil when the item is the key.
	itemIndex []int
	// field is the entity field the key compares against.
	field *schema.Field
	// kind is the logical type values are coerced to; empty for custom types.
	kind schema.DataType
	// declared is the column type reported by the catalog.
	declared        string
	nullMatchesNull bool
}

func (k keyColumn) column() string { return k.field.DBName }

// keyLayout is the resolved key descriptor of one call.
type keyLayout struct {
	table      string
	entity     *schema.Schema
	entityType reflect.Type
	keys       []keyColumn
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// entitySchema parses the gorm schema of an entity type (struct or pointer to struct).
func (m *Matcher) entitySchema(entityType reflect.Type) (*schema.Schema, error) {
	base := indirectType(entityType)
	if base.Kind() != reflect.Struct {
		return nil, &MappingError{Reason: fmt.Sprintf("entity type %s is not a struct", entityType)}
	}
	sch, err := schema.Parse(reflect.New(base).Interface(), &m.schemas, m.backend.Namer())
	if err != nil {
		return nil, &MappingError{Reason: fmt.Sprintf("parse entity %s: %v", base, err)}
	}
	return sch, nil
}

// resolveLayout turns the call's mappings into a key layout. It touches no store.
func (m *Matcher) resolveLayout(c *call) (*keyLayout, error) {
	sch, err := m.entitySchema(c.entityType)
	if err != nil {
		return nil, err
	}

	mappings, err := m.normalizeMappings(c, sch)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, &MappingError{Reason: "key has zero columns"}
	}

	layout := &keyLayout{
		table:      c.table,
		entity:     sch,
		entityType: c.entityType,
	}
	if layout.table == "" {
		layout.table = sch.Table
	}

	for _, mp := range mappings {
		if mp.Column == "" {
			return nil, &MappingError{ItemField: mp.ItemField, Reason: "column is required"}
		}
		field := lookupEntityField(sch, mp.Column)
		if field == nil {
			return nil, &MappingError{ItemField: mp.ItemField, Column: mp.Column, Reason: fmt.Sprintf("no such field on %s", sch.Name)}
		}

		key := keyColumn{
			itemField:       mp.ItemField,
			field:           field,
			kind:            logicalType(field),
			nullMatchesNull: mp.NullMatchesNull,
		}
		if mp.ItemField == "" {
			if len(mappings) != 1 {
				return nil, &MappingError{Column: mp.Column, Reason: "item as key value requires a single key column"}
			}
			if !isScalarType(c.itemType) {
				return nil, &MappingError{Column: mp.Column, Reason: fmt.Sprintf("item type %s is not a scalar key", c.itemType)}
			}
		} else {
			idx, ok := lookupItemField(c.itemType, mp.ItemField, m.backend.Namer())
			if !ok {
				return nil, &MappingError{ItemField: mp.ItemField, Column: mp.Column, Reason: fmt.Sprintf("no such field on %s", c.itemType)}
			}
			key.itemIndex = idx
		}
		layout.keys = append(layout.keys, key)
	}

	return layout, nil
}

// normalizeMappings applies the Columns shorthand and the shared-column default.
func (m *Matcher) normalizeMappings(c *call, sch *schema.Schema) ([]KeyMapping, error) {
	switch {
	case len(c.mappings) > 0 && len(c.columns) > 0:
		return nil, &MappingError{Reason: "key mappings and columns are mutually exclusive"}
	case len(c.mappings) > 0:
		return c.mappings, nil
	case len(c.columns) > 0:
		mappings := make([]KeyMapping, 0, len(c.columns))
		for _, name := range c.columns {
			mappings = append(mappings, KeyMapping{ItemField: name, Column: name})
		}
		return mappings, nil
	default:
		return m.sharedColumnMappings(c.itemType, sch)
	}
}

// sharedColumnMappings maps every non-key scalar entity column the item also has.
func (m *Matcher) sharedColumnMappings(itemType reflect.Type, sch *schema.Schema) ([]KeyMapping, error) {
	if indirectType(itemType).Kind() != reflect.Struct {
		return nil, &MappingError{Reason: fmt.Sprintf("no key given and item type %s has no fields", itemType)}
	}

	var mappings []KeyMapping
	for _, f := range sch.Fields {
		if f.DBName == "" || f.PrimaryKey || logicalType(f) == "" {
			continue
		}
		if _, ok := lookupItemField(itemType, f.Name, m.backend.Namer()); ok {
			mappings = append(mappings, KeyMapping{ItemField: f.Name, Column: f.DBName})
		}
	}
	if len(mappings) == 0 {
		return nil, &MappingError{Reason: fmt.Sprintf("%s shares no non-key columns with %s", itemType, sch.Name)}
	}
	return mappings, nil
}

func lookupEntityField(sch *schema.Schema, name string) *schema.Field {
	if f := sch.LookUpField(name); f != nil && f.DBName != "" {
		return f
	}
	for _, f := range sch.Fields {
		if f.DBName != "" && (strings.EqualFold(f.Name, name) || strings.EqualFold(f.DBName, name)) {
			return f
		}
	}
	return nil
}

// lookupItemField finds an exported item field by Go name, then by Go name or
// derived column name ignoring case.
func lookupItemField(t reflect.Type, name string, namer schema.Namer) ([]int, bool) {
	t = indirectType(t)
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	if f, ok := t.FieldByName(name); ok && exportedPath(t, f.Index) {
		return f.Index, true
	}
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !exportedPath(t, f.Index) {
			continue
		}
		if strings.EqualFold(f.Name, name) || strings.EqualFold(namer.ColumnName("", f.Name), name) {
			return f.Index, true
		}
	}
	return nil, false
}

// exportedPath reports whether every field on the index path is exported, so
// the value can be read through reflection.
func exportedPath(t reflect.Type, index []int) bool {
	for _, i := range index {
		t = indirectType(t)
		f := t.Field(i)
		if !f.IsExported() {
			return false
		}
		t = f.Type
	}
	return true
}

// isScalarType reports whether values of t can be a key on their own.
func isScalarType(t reflect.Type) bool {
	if t.Implements(valuerType) {
		return true
	}
	t = indirectType(t)
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t.ConvertibleTo(timeType)
	default:
		return false
	}
}

// logicalType returns the scalar type of an entity field, looking through
// explicit column type tags (type:varchar(32)) to the Go type. Fields whose
// type implements driver.Valuer yield "" and are matched as custom types.
func logicalType(f *schema.Field) schema.DataType {
	if scalarDataType(f.DataType) {
		return f.DataType
	}
	t := f.IndirectFieldType
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return ""
	}
	switch t.Kind() {
	case reflect.Bool:
		return schema.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return schema.Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.Uint
	case reflect.Float32, reflect.Float64:
		return schema.Float
	case reflect.String:
		return schema.String
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.Bytes
		}
	case reflect.Struct:
		if t.ConvertibleTo(timeType) {
			return schema.Time
		}
	}
	return ""
}

func scalarDataType(dt schema.DataType) bool {
	switch dt {
	case schema.Bool, schema.Int, schema.Uint, schema.Float, schema.String, schema.Time, schema.Bytes:
		return true
	default:
		return false
	}
}
