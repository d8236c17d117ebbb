package match

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"keymatch/core/metrics"

	"go.uber.org/zap"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 1000

// Config holds configuration for the matcher.
type Config struct {
	// BatchSize is the maximum number of key tuples per staging write.
	BatchSize int `mapstructure:"batch_size" default:"1000"`
	// CatalogTTLSeconds is how long relation descriptions are cached. Zero disables caching.
	CatalogTTLSeconds int `mapstructure:"catalog_ttl_seconds" default:"300"`
}

// Operation labels.
const (
	opExisting    = "existing"
	opNotExisting = "not_existing"
	opPartition   = "partition"
)

// Matcher runs match calls against one backend. It is safe for concurrent use;
// every call stages its keys in its own session.
type Matcher struct {
	backend  Backend
	cfg      Config
	logger   *zap.Logger
	schemas  sync.Map
	catalog  *catalogCache
	registry *Registry
}

// New creates a matcher. A nil logger disables logging.
func New(backend Backend, cfg Config, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Matcher{
		backend:  backend,
		cfg:      cfg,
		logger:   logger,
		catalog:  newCatalogCache(time.Duration(cfg.CatalogTTLSeconds) * time.Second),
		registry: NewRegistry(),
	}
}

// Registry returns the type-pair registry used by the runtime-typed entry points.
func (m *Matcher) Registry() *Registry {
	return m.registry
}

// Describe returns the catalog view of table, through the catalog cache.
func (m *Matcher) Describe(ctx context.Context, table string) (*Relation, error) {
	rel, err := m.catalog.get(ctx, m.backend, table)
	if err != nil {
		return nil, &StoreError{Op: "describe", Err: err}
	}
	return rel, nil
}

// TableName returns the relation an entity type is stored in.
func (m *Matcher) TableName(entityType reflect.Type) (string, error) {
	sch, err := m.entitySchema(entityType)
	if err != nil {
		return "", err
	}
	return sch.Table, nil
}

// InvalidateCatalog drops the cached description of table.
func (m *Matcher) InvalidateCatalog(table string) {
	m.catalog.invalidate(table)
}

// Existing returns the stored entity of every candidate whose key exists in
// the relation of E, in candidate order.
func Existing[I, E any](ctx context.Context, m *Matcher, req Request[I]) ([]E, error) {
	res, err := partition[I, E](ctx, m, opExisting, req)
	if err != nil {
		return nil, err
	}
	return res.Existing, nil
}

// NotExisting returns the candidates whose key does not exist in the relation
// of E, in candidate order.
func NotExisting[I, E any](ctx context.Context, m *Matcher, req Request[I]) ([]I, error) {
	res, err := partition[I, E](ctx, m, opNotExisting, req)
	if err != nil {
		return nil, err
	}
	return res.NotExisting, nil
}

// Partition returns both partitions of one call.
func Partition[I, E any](ctx context.Context, m *Matcher, req Request[I]) (*Result[I, E], error) {
	return partition[I, E](ctx, m, opPartition, req)
}

func partition[I, E any](ctx context.Context, m *Matcher, op string, req Request[I]) (*Result[I, E], error) {
	out, err := m.run(ctx, &call{
		op:         op,
		itemType:   reflect.TypeFor[I](),
		entityType: reflect.TypeFor[E](),
		items:      reflect.ValueOf(req.Items),
		mappings:   req.KeyMappings,
		columns:    req.Columns,
		table:      req.Table,
	})
	if err != nil {
		return nil, err
	}

	res := &Result[I, E]{
		Existing:    make([]E, 0, len(out.existing)),
		NotExisting: make([]I, 0, len(out.notExisting)),
	}
	for _, v := range out.existing {
		res.Existing = append(res.Existing, v.Interface().(E))
	}
	for _, v := range out.notExisting {
		res.NotExisting = append(res.NotExisting, v.Interface().(I))
	}
	return res, nil
}

// call is one request with its types resolved.
type call struct {
	op         string
	itemType   reflect.Type
	entityType reflect.Type
	items      reflect.Value
	mappings   []KeyMapping
	columns    []string
	table      string
}

// run is the pipeline shared by the typed and runtime-typed entry points:
// resolve the key, describe the relation, extract, stage, join, assemble.
func (m *Matcher) run(ctx context.Context, c *call) (out *outcome, err error) {
	start := time.Now()
	relation := c.table
	defer func() {
		metrics.MatchCallsTotal.WithLabelValues(c.op, relation, metrics.Status(err)).Inc()
		metrics.MatchCallDuration.WithLabelValues(c.op, relation).Observe(time.Since(start).Seconds())
	}()

	if c.items.Kind() != reflect.Slice || c.items.Len() == 0 {
		return &outcome{}, nil
	}

	layout, err := m.resolveLayout(c)
	if err != nil {
		return nil, err
	}
	relation = layout.table

	if err := m.bindCatalog(ctx, layout); err != nil {
		return nil, err
	}

	tuples, err := extract(c.items, layout)
	if err != nil {
		return nil, err
	}

	sameType := c.itemType == c.entityType
	var rows []MatchedRow
	err = m.backend.WithSession(ctx, func(s Session) error {
		area := newStagingArea(layout)
		return m.withStaging(ctx, s, area, func() error {
			if err := m.stage(ctx, s, area, tuples); err != nil {
				return err
			}
			var qErr error
			rows, qErr = s.Query(ctx, planJoin(s, area, layout, !sameType))
			if qErr != nil {
				return &StoreError{Op: "match", Err: qErr}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	matched, err := collect(ctx, c.items, layout, rows, sameType)
	if err != nil {
		return nil, err
	}
	out = assemble(c.items, matched)

	metrics.MatchItemsTotal.WithLabelValues(relation, "existing").Add(float64(len(out.existing)))
	metrics.MatchItemsTotal.WithLabelValues(relation, "not_existing").Add(float64(len(out.notExisting)))
	m.logger.Info("Match completed",
		zap.String("op", c.op),
		zap.String("relation", relation),
		zap.Int("items", c.items.Len()),
		zap.Int("existing", len(out.existing)),
		zap.Int("not_existing", len(out.notExisting)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// bindCatalog checks every key column against the relation and records its
// declared type for the staging area.
func (m *Matcher) bindCatalog(ctx context.Context, layout *keyLayout) error {
	rel, err := m.Describe(ctx, layout.table)
	if err != nil {
		return err
	}
	if len(rel.Columns) == 0 {
		return &MappingError{Reason: fmt.Sprintf("relation %s not found", layout.table)}
	}
	for i := range layout.keys {
		col, ok := rel.Column(layout.keys[i].column())
		if !ok {
			return &MappingError{
				ItemField: layout.keys[i].itemField,
				Column:    layout.keys[i].column(),
				Reason:    fmt.Sprintf("no such column in relation %s", layout.table),
			}
		}
		layout.keys[i].declared = col.Type
	}
	return nil
}
