package match

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// catalogEntry is a cached relation description.
type catalogEntry struct {
	relation *Relation
	built    time.Time
}

// catalogCache caches relation descriptions per table with a TTL.
type catalogCache struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	sf      singleflight.Group
	ttl     time.Duration
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	return &catalogCache{
		entries: make(map[string]catalogEntry),
		ttl:     ttl,
	}
}

func (c *catalogCache) fresh(e catalogEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Since(e.built) <= c.ttl
}

// get returns the cached description of table, or loads it through backend.
// Concurrent misses for the same table share one catalog query.
func (c *catalogCache) get(ctx context.Context, backend Backend, table string) (*Relation, error) {
	key := strings.ToLower(table)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.fresh(entry) {
		return entry.relation, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.fresh(entry) {
			return entry.relation, nil
		}

		rel, err := backend.Describe(ctx, table)
		if err != nil {
			return nil, err
		}

		// Missing tables are not cached; they may be created later.
		if len(rel.Columns) > 0 && c.ttl > 0 {
			c.mu.Lock()
			c.entries[key] = catalogEntry{relation: rel, built: time.Now()}
			c.mu.Unlock()
		}
		return rel, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Relation), nil
}

// invalidate drops the cached description of table.
func (c *catalogCache) invalidate(table string) {
	c.mu.Lock()
	delete(c.entries, strings.ToLower(table))
	c.mu.Unlock()
}
