package match

import "strings"

// KeyMapping pairs one candidate item field with one stored column.
type KeyMapping struct {
	// ItemField is the item's field name. Empty means the item itself is the key value.
	ItemField string `json:"item_field,omitempty"`

	// Column is the entity field or column the key is compared against.
	Column string `json:"column"`

	// NullMatchesNull makes an absent candidate value match an absent stored value.
	// By default null matches nothing, not even null.
	NullMatchesNull bool `json:"null_matches_null,omitempty"`
}

// Request is the input of a match call.
type Request[I any] struct {
	// Items are the candidates, in caller order.
	Items []I

	// KeyMappings declares the key explicitly.
	KeyMappings []KeyMapping

	// Columns is shorthand for KeyMappings where the item field and the entity
	// field share a name. Mutually exclusive with KeyMappings.
	Columns []string

	// Table overrides the relation name derived from the entity type.
	Table string
}

// Result holds both partitions of a match call.
type Result[I, E any] struct {
	// Existing holds the stored entity of every matched candidate, in input order.
	Existing []E

	// NotExisting holds the unmatched candidates, in input order.
	NotExisting []I
}

// KeyValue is one extracted key value. Valid is false for an absent value,
// which is distinct from any zero value of the column type.
type KeyValue struct {
	Value any
	Valid bool
}

// Null returns an absent key value.
func Null() KeyValue { return KeyValue{} }

// Present returns a key value holding v.
func Present(v any) KeyValue { return KeyValue{Value: v, Valid: true} }

// Arg returns the value as a driver argument (nil when absent).
func (k KeyValue) Arg() any {
	if !k.Valid {
		return nil
	}
	return k.Value
}

// KeyTuple is the key extracted from the item at Ordinal, aligned with the mappings.
type KeyTuple struct {
	Ordinal int
	Values  []KeyValue
}

// Column is one column of a relation as reported by the catalog.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// Relation is the catalog view of a persisted table.
type Relation struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column looks up a column by name, ignoring case.
func (r *Relation) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the primary key column names in catalog order.
func (r *Relation) PrimaryKey() []string {
	var pk []string
	for _, c := range r.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// OrdinalColumn is the staging column carrying each tuple's input position.
const OrdinalColumn = "ordinal"

// StagingColumn is one key column of a staging area.
type StagingColumn struct {
	Name string
	Type string
}

// StagingArea describes a call-scoped temporary table holding staged keys.
// The ordinal column is implicit and always comes first.
type StagingArea struct {
	Name    string
	Columns []StagingColumn
}

// ColumnNames returns the ordinal column followed by the key columns.
func (a *StagingArea) ColumnNames() []string {
	names := make([]string, 0, len(a.Columns)+1)
	names = append(names, OrdinalColumn)
	for _, c := range a.Columns {
		names = append(names, c.Name)
	}
	return names
}

// MatchedRow is one row of join output: the staged ordinal followed by any
// stored columns the query selected.
type MatchedRow struct {
	Ordinal int
	Columns []string
	Values  []any
}
