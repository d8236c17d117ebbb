package relations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"keymatch/core/match"

	"go.uber.org/zap"
)

var (
	// ErrUnknownRelation reports a relation name with no definition.
	ErrUnknownRelation = errors.New("unknown relation")
	// ErrInvalidItems reports a candidate payload that does not decode into the item type.
	ErrInvalidItems = errors.New("invalid items")
	// ErrInvalidOperation reports an operation other than existing, not-existing or partition.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Operations accepted by Service.Match.
const (
	OpExisting    = "existing"
	OpNotExisting = "not-existing"
	OpPartition   = "partition"
)

// MatchRequest is the wire form of a match call. When neither KeyMappings
// nor Columns is set, the relation's default key is used.
type MatchRequest struct {
	Items       json.RawMessage    `json:"items"`
	KeyMappings []match.KeyMapping `json:"key_mappings,omitempty"`
	Columns     []string           `json:"columns,omitempty"`
}

// MatchResponse carries the partitions requested by the operation. A
// partition the operation did not ask for is omitted.
type MatchResponse struct {
	Relation         string `json:"relation"`
	Operation        string `json:"operation"`
	Existing         any    `json:"existing,omitempty"`
	NotExisting      any    `json:"not_existing,omitempty"`
	ExistingCount    int    `json:"existing_count"`
	NotExistingCount int    `json:"not_existing_count"`
}

// RelationInfo describes one served relation.
type RelationInfo struct {
	Name        string             `json:"name"`
	Table       string             `json:"table"`
	ItemType    string             `json:"item_type"`
	EntityType  string             `json:"entity_type"`
	KeyMappings []match.KeyMapping `json:"key_mappings,omitempty"`
	Columns     []string           `json:"columns,omitempty"`
}

// Service runs match calls for named relations.
type Service struct {
	matcher *match.Matcher
	catalog *Catalog
	logger  *zap.Logger
}

// NewService creates a new relations service and binds the catalog's type
// pairs in the matcher's registry.
func NewService(matcher *match.Matcher, catalog *Catalog, logger *zap.Logger) *Service {
	catalog.RegisterAll(matcher.Registry())
	return &Service{
		matcher: matcher,
		catalog: catalog,
		logger:  logger,
	}
}

// List returns every served relation.
func (s *Service) List() ([]RelationInfo, error) {
	defs := s.catalog.Definitions()
	out := make([]RelationInfo, 0, len(defs))
	for _, d := range defs {
		table, err := s.matcher.TableName(d.EntityType)
		if err != nil {
			return nil, err
		}
		out = append(out, RelationInfo{
			Name:        d.Name,
			Table:       table,
			ItemType:    d.ItemType.String(),
			EntityType:  d.EntityType.String(),
			KeyMappings: d.KeyMappings,
			Columns:     d.Columns,
		})
	}
	return out, nil
}

// Describe returns the catalog view of the relation's table.
func (s *Service) Describe(ctx context.Context, name string) (*match.Relation, error) {
	d, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	table, err := s.matcher.TableName(d.EntityType)
	if err != nil {
		return nil, err
	}
	return s.matcher.Describe(ctx, table)
}

// Match decodes the candidates of req and runs op against the named relation.
func (s *Service) Match(ctx context.Context, name, op string, req MatchRequest) (*MatchResponse, error) {
	d, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	items, err := d.Decode(req.Items)
	if err != nil {
		return nil, err
	}

	dreq := match.DynamicRequest{
		Items:       items,
		KeyMappings: req.KeyMappings,
		Columns:     req.Columns,
	}
	if len(dreq.KeyMappings) == 0 && len(dreq.Columns) == 0 {
		dreq.KeyMappings = d.KeyMappings
		dreq.Columns = d.Columns
	}

	resp := &MatchResponse{Relation: d.Name, Operation: op}
	switch op {
	case OpExisting:
		resp.Existing, err = match.SelectExisting(ctx, s.matcher, d.ItemType, d.EntityType, dreq)
	case OpNotExisting:
		resp.NotExisting, err = match.SelectNotExisting(ctx, s.matcher, d.ItemType, d.EntityType, dreq)
	case OpPartition:
		resp.Existing, resp.NotExisting, err = match.SelectPartition(ctx, s.matcher, d.ItemType, d.EntityType, dreq)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}
	if err != nil {
		return nil, err
	}

	resp.ExistingCount = sliceLen(resp.Existing)
	resp.NotExistingCount = sliceLen(resp.NotExisting)
	return resp, nil
}

func sliceLen(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0
	}
	return rv.Len()
}
