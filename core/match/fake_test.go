package match

import (
	"context"
	"database/sql/driver"
	"errors"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// widget is the entity used by the package tests.
type widget struct {
	ID   int64 `gorm:"primaryKey"`
	Code string
	Size *int64
}

// widgetRef is a foreign item shape carrying widget keys.
type widgetRef struct {
	Code string
	Size *int64
}

// tagValue is a custom column type.
type tagValue string

func (t tagValue) Value() (driver.Value, error) {
	if t == "" {
		return nil, nil
	}
	return strings.ToUpper(string(t)), nil
}

type labelled struct {
	ID  int64    `gorm:"primaryKey"`
	Tag tagValue `gorm:"type:char(8)"`
}

func widgetRelation() *Relation {
	return &Relation{Name: "widgets", Columns: []Column{
		{Name: "id", Type: "bigint", PrimaryKey: true},
		{Name: "code", Type: "varchar(32)", Nullable: true},
		{Name: "size", Type: "bigint", Nullable: true},
	}}
}

func labelledRelation() *Relation {
	return &Relation{Name: "labelleds", Columns: []Column{
		{Name: "id", Type: "bigint", PrimaryKey: true},
		{Name: "tag", Type: "char(8)"},
	}}
}

type fakeBackend struct {
	mu            sync.Mutex
	relations     map[string]*Relation
	describeErr   error
	describeCalls int
	sessionErr    error
	sessions      int
	session       *fakeSession
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		relations: map[string]*Relation{
			"widgets":   widgetRelation(),
			"labelleds": labelledRelation(),
		},
		session: &fakeSession{
			stored: map[any]int64{"a": 1, "c": 3},
		},
	}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Namer() schema.Namer { return schema.NamingStrategy{} }

func (b *fakeBackend) Describe(ctx context.Context, table string) (*Relation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.describeCalls++
	if b.describeErr != nil {
		return nil, b.describeErr
	}
	if rel, ok := b.relations[table]; ok {
		return rel, nil
	}
	return &Relation{Name: table}, nil
}

func (b *fakeBackend) WithSession(ctx context.Context, fn func(Session) error) error {
	b.mu.Lock()
	b.sessions++
	b.mu.Unlock()
	if b.sessionErr != nil {
		return &StoreError{Op: "acquire session", Err: b.sessionErr}
	}
	return fn(b.session)
}

type fakeSession struct {
	maxParams int
	// stored maps the first key value to the id of the stored widget.
	stored map[any]int64
	// duplicate returns every matching row twice.
	duplicate bool
	// ordinalShift corrupts returned ordinals.
	ordinalShift int

	createErr error
	writeErr  error
	queryErr  error
	// dropErrAt fails the n-th drop (1-based).
	dropErrAt int
	onWrite   func() error

	created     []*StagingArea
	writes      [][]KeyTuple
	staged      []KeyTuple
	queries     []string
	drops       int
	dropCtxErrs []error
}

func (s *fakeSession) Quote(ident string) string { return `"` + ident + `"` }

func (s *fakeSession) MaxBindParams() int { return s.maxParams }

func (s *fakeSession) CreateStaging(ctx context.Context, area *StagingArea) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, area)
	return nil
}

func (s *fakeSession) WriteStaging(ctx context.Context, area *StagingArea, batch []KeyTuple) error {
	if s.onWrite != nil {
		if err := s.onWrite(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, batch)
	s.staged = append(s.staged, batch...)
	return nil
}

func (s *fakeSession) Query(ctx context.Context, query string) ([]MatchedRow, error) {
	s.queries = append(s.queries, query)
	if s.queryErr != nil {
		return nil, s.queryErr
	}

	staged := append([]KeyTuple(nil), s.staged...)
	sort.Slice(staged, func(i, j int) bool { return staged[i].Ordinal < staged[j].Ordinal })

	withRows := strings.Contains(query, "t.*")
	var rows []MatchedRow
	for _, t := range staged {
		if !t.Values[0].Valid {
			continue
		}
		id, ok := s.stored[t.Values[0].Value]
		if !ok {
			continue
		}
		row := MatchedRow{Ordinal: t.Ordinal + s.ordinalShift}
		if withRows {
			row.Columns = []string{"id", "code", "size"}
			row.Values = []any{id, t.Values[0].Value, nil}
		}
		rows = append(rows, row)
		if s.duplicate {
			dup := row
			if withRows {
				dup.Values = []any{id + 100, t.Values[0].Value, nil}
			}
			rows = append(rows, dup)
		}
	}
	return rows, nil
}

func (s *fakeSession) DropStaging(ctx context.Context, area *StagingArea) error {
	s.drops++
	s.dropCtxErrs = append(s.dropCtxErrs, ctx.Err())
	if s.dropErrAt == s.drops {
		return errors.New("drop refused")
	}
	return nil
}
