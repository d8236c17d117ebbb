// Package match partitions a large set of candidate items into those whose key
// already exists in a persisted relation and those whose key does not, without
// one round trip per item.
//
// It is used ahead of bulk inserts to split an incoming batch into
// "update/skip" and "insert" groups.
//
// # Pipeline
//
// A call runs through five steps:
//
// 1. Key descriptor: the request's KeyMappings (or the Columns shorthand, or
//    the non-key columns shared by item and entity) are resolved against the
//    item type and the gorm schema of the entity type.
//
// 2. Extraction: one KeyTuple per item, coerced strictly to the declared
//    column type. Absent values stay absent; they are never collapsed into a
//    zero value.
//
// 3. Staging: tuples are written in batches into a temporary table owned by a
//    single pinned session and named uniquely per call. The table is dropped
//    on every exit path, including cancellation.
//
// 4. Join: one set-based join on all key columns. Null never matches, unless
//    the mapping sets NullMatchesNull.
//
// 5. Assembly: ordinals are walked in input order to build Existing and
//    NotExisting. When item and entity share a type the caller's own
//    instances are returned; otherwise entities are built from stored rows.
//
// # Runtime types
//
// Callers that only hold reflect.Type handles use SelectExisting,
// SelectNotExisting or SelectPartition. Pairs bound with Register go through
// the generic pipeline; other pairs are driven reflectively.
//
// # Usage
//
//	m := match.New(backend, cfg.Match, log)
//
//	existing, err := match.Existing[Price, Price](ctx, m, match.Request[Price]{
//	    Items:   prices,
//	    Columns: []string{"Date", "Name", "Value"},
//	})
//
//	fresh, err := match.NotExisting[int64, Number](ctx, m, match.Request[int64]{
//	    Items:       values,
//	    KeyMappings: []match.KeyMapping{{Column: "Value"}},
//	})
package match
