package relations

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"keymatch/core/match"
	"keymatch/feature/relations/models"
)

// Definition binds a relation name to its item and entity types and the key
// used when a request does not name one.
type Definition struct {
	Name        string
	ItemType    reflect.Type
	EntityType  reflect.Type
	KeyMappings []match.KeyMapping
	Columns     []string

	decode func(data []byte) (any, error)
	bind   func(r *match.Registry)
}

// Define describes a relation whose candidates are I and whose stored rows are E.
func Define[I, E any](name string, mappings []match.KeyMapping, columns []string) Definition {
	return Definition{
		Name:        name,
		ItemType:    reflect.TypeFor[I](),
		EntityType:  reflect.TypeFor[E](),
		KeyMappings: mappings,
		Columns:     columns,
		decode: func(data []byte) (any, error) {
			items := []I{}
			if len(data) == 0 {
				return items, nil
			}
			if err := json.Unmarshal(data, &items); err != nil {
				return nil, err
			}
			return items, nil
		},
		bind: match.Register[I, E],
	}
}

// Decode parses a JSON array of candidates into a []ItemType.
func (d Definition) Decode(data []byte) (any, error) {
	items, err := d.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidItems, d.Name, err)
	}
	return items, nil
}

// Catalog holds relation definitions by name.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog creates a catalog from defs. A later definition replaces an
// earlier one with the same name.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.Name] = d
	}
	return c
}

// DefaultCatalog returns the relations served by keymatch.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Define[models.Number, models.Number]("numbers", nil, []string{"Value"}),
		Define[int64, models.Number]("number-values", []match.KeyMapping{{Column: "Value"}}, nil),
		Define[models.NumberCandidate, models.Number]("number-candidates", []match.KeyMapping{{ItemField: "Val", Column: "Value"}}, nil),
		Define[models.Price, models.Price]("prices", nil, []string{"Date", "Name", "Value"}),
		Define[models.Team, models.Team]("teams", nil, []string{"ID"}),
		Define[models.GeneratedTeam, models.GeneratedTeam]("generated-teams", nil, []string{"ID"}),
		Define[models.Parity, models.Parity]("parities", nil, []string{"ID"}),
	)
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, error) {
	d, ok := c.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownRelation, name)
	}
	return d, nil
}

// Definitions returns every definition, sorted by name.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterAll binds every definition's type pair in r, so runtime-typed calls
// take the generic path.
func (c *Catalog) RegisterAll(r *match.Registry) {
	for _, d := range c.defs {
		d.bind(r)
	}
}
