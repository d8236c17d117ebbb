package match

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// DynamicRequest is the runtime-typed form of Request. Items must be a slice
// whose element type is the item type passed alongside it.
type DynamicRequest struct {
	Items       any
	KeyMappings []KeyMapping
	Columns     []string
	Table       string
}

// Selector is the match capability of one (item, entity) type pair, built at
// compile time by Bind and looked up at run time by type handles.
type Selector interface {
	ItemType() reflect.Type
	EntityType() reflect.Type
	// Partition returns the existing entities as []E and the remaining items
	// as []I, both boxed.
	Partition(ctx context.Context, m *Matcher, req DynamicRequest) (existing, notExisting any, err error)
}

type binding[I, E any] struct{}

// Bind returns the Selector for items of type I matched against entities of type E.
func Bind[I, E any]() Selector {
	return binding[I, E]{}
}

func (binding[I, E]) ItemType() reflect.Type   { return reflect.TypeFor[I]() }
func (binding[I, E]) EntityType() reflect.Type { return reflect.TypeFor[E]() }

func (b binding[I, E]) Partition(ctx context.Context, m *Matcher, req DynamicRequest) (any, any, error) {
	return b.partitionOp(ctx, m, opPartition, req)
}

// partitionOp runs the generic pipeline under the caller's operation label.
// A nil Items is an empty candidate list.
func (b binding[I, E]) partitionOp(ctx context.Context, m *Matcher, op string, req DynamicRequest) (any, any, error) {
	items, ok := req.Items.([]I)
	if !ok && req.Items != nil {
		return nil, nil, &MappingError{Reason: fmt.Sprintf("items are %T, want []%s", req.Items, b.ItemType())}
	}
	res, err := partition[I, E](ctx, m, op, Request[I]{
		Items:       items,
		KeyMappings: req.KeyMappings,
		Columns:     req.Columns,
		Table:       req.Table,
	})
	if err != nil {
		return nil, nil, err
	}
	return res.Existing, res.NotExisting, nil
}

// labelledSelector is implemented by selectors built with Bind.
type labelledSelector interface {
	partitionOp(ctx context.Context, m *Matcher, op string, req DynamicRequest) (any, any, error)
}

type typePair struct {
	item   reflect.Type
	entity reflect.Type
}

// Registry maps (item type, entity type) pairs to their Selector.
type Registry struct {
	mu        sync.RWMutex
	selectors map[typePair]Selector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{selectors: make(map[typePair]Selector)}
}

// Register adds s, replacing any selector for the same type pair.
func (r *Registry) Register(s Selector) {
	r.mu.Lock()
	r.selectors[typePair{s.ItemType(), s.EntityType()}] = s
	r.mu.Unlock()
}

// Lookup returns the selector registered for the type pair.
func (r *Registry) Lookup(itemType, entityType reflect.Type) (Selector, bool) {
	r.mu.RLock()
	s, ok := r.selectors[typePair{itemType, entityType}]
	r.mu.RUnlock()
	return s, ok
}

// Register binds I and E in r.
func Register[I, E any](r *Registry) {
	r.Register(Bind[I, E]())
}

// SelectPartition runs a match call whose item and entity types are only
// known at run time. A Selector registered for the pair is used when present;
// otherwise the pipeline is driven reflectively. Both paths yield the same
// result: existing is a []entityType and notExisting a []itemType.
func SelectPartition(ctx context.Context, m *Matcher, itemType, entityType reflect.Type, req DynamicRequest) (existing, notExisting any, err error) {
	return selectOp(ctx, m, opPartition, itemType, entityType, req)
}

// SelectExisting is the runtime-typed form of Existing; the result is a []entityType.
func SelectExisting(ctx context.Context, m *Matcher, itemType, entityType reflect.Type, req DynamicRequest) (any, error) {
	existing, _, err := selectOp(ctx, m, opExisting, itemType, entityType, req)
	return existing, err
}

// SelectNotExisting is the runtime-typed form of NotExisting; the result is a []itemType.
func SelectNotExisting(ctx context.Context, m *Matcher, itemType, entityType reflect.Type, req DynamicRequest) (any, error) {
	_, notExisting, err := selectOp(ctx, m, opNotExisting, itemType, entityType, req)
	return notExisting, err
}

func selectOp(ctx context.Context, m *Matcher, op string, itemType, entityType reflect.Type, req DynamicRequest) (any, any, error) {
	s, ok := m.registry.Lookup(itemType, entityType)
	if !ok {
		return reflectPartition(ctx, m, op, itemType, entityType, req)
	}
	if ls, ok := s.(labelledSelector); ok {
		return ls.partitionOp(ctx, m, op, req)
	}
	return s.Partition(ctx, m, req)
}

func reflectPartition(ctx context.Context, m *Matcher, op string, itemType, entityType reflect.Type, req DynamicRequest) (any, any, error) {
	if req.Items == nil {
		req.Items = reflect.MakeSlice(reflect.SliceOf(itemType), 0, 0).Interface()
	}
	items := reflect.ValueOf(req.Items)
	if items.Kind() != reflect.Slice || items.Type().Elem() != itemType {
		return nil, nil, &MappingError{Reason: fmt.Sprintf("items are %T, want []%s", req.Items, itemType)}
	}

	out, err := m.run(ctx, &call{
		op:         op,
		itemType:   itemType,
		entityType: entityType,
		items:      items,
		mappings:   req.KeyMappings,
		columns:    req.Columns,
		table:      req.Table,
	})
	if err != nil {
		return nil, nil, err
	}

	existing := reflect.MakeSlice(reflect.SliceOf(entityType), 0, len(out.existing))
	for _, v := range out.existing {
		existing = reflect.Append(existing, v)
	}
	notExisting := reflect.MakeSlice(reflect.SliceOf(itemType), 0, len(out.notExisting))
	for _, v := range out.notExisting {
		notExisting = reflect.Append(notExisting, v)
	}
	return existing.Interface(), notExisting.Interface(), nil
}
