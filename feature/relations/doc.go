// Package relations serves match calls for a fixed set of named relations.
//
// Each relation binds a name to an item type, an entity type and a default
// key. Requests carry their candidates as JSON; the relation decides which Go
// type they decode into, and the call then goes through the runtime-typed
// entry points of core/match.
//
// # Routes
//
//   - GET  /relations: served relations and their default keys.
//   - GET  /relations/:name/catalog: columns and primary key of the relation.
//   - POST /relations/:name/existing
//   - POST /relations/:name/not-existing
//   - POST /relations/:name/partition
//
// # Request body
//
//	{
//	  "items": [{"val": 151}, {"val": 152}],
//	  "key_mappings": [{"item_field": "Val", "column": "Value"}]
//	}
//
// Mapping and type errors answer 400, unknown relations 404 and store or
// staging failures 503.
package relations
