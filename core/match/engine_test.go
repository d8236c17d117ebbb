package match

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func refs(codes ...string) []widgetRef {
	out := make([]widgetRef, len(codes))
	for i, c := range codes {
		out[i] = widgetRef{Code: c}
	}
	return out
}

func TestPartition_DifferentTypes(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	res, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{
		Items:   refs("a", "b", "c"),
		Columns: []string{"Code"},
	})
	require.NoError(t, err)

	assert.Equal(t, []widget{{ID: 1, Code: "a"}, {ID: 3, Code: "c"}}, res.Existing)
	assert.Equal(t, refs("b"), res.NotExisting)

	s := backend.session
	require.Len(t, s.created, 1)
	area := s.created[0]
	assert.True(t, strings.HasPrefix(area.Name, "km_"))
	assert.Equal(t, []StagingColumn{{Name: "k0", Type: "varchar(32)"}}, area.Columns)
	assert.Equal(t, 2, s.drops, "dropped before create and after the join")
	require.Len(t, s.queries, 1)
	assert.Contains(t, s.queries[0], `SELECT s."ordinal", t.* FROM`)
}

func TestPartition_SameTypeReturnsCallerInstances(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	items := []*widget{{Code: "c"}, {Code: "x"}, {Code: "a"}}
	res, err := Partition[*widget, *widget](context.Background(), m, Request[*widget]{
		Items:   items,
		Columns: []string{"Code"},
	})
	require.NoError(t, err)

	require.Len(t, res.Existing, 2)
	assert.Same(t, items[0], res.Existing[0])
	assert.Same(t, items[2], res.Existing[1])
	require.Len(t, res.NotExisting, 1)
	assert.Same(t, items[1], res.NotExisting[0])
	assert.Contains(t, backend.session.queries[0], "SELECT DISTINCT")
}

func TestPartition_PrimitiveItems(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	existing, err := Existing[string, *widget](context.Background(), m, Request[string]{
		Items:       []string{"c", "b", "a"},
		KeyMappings: []KeyMapping{{Column: "code"}},
	})
	require.NoError(t, err)
	require.Len(t, existing, 2)
	assert.Equal(t, int64(3), existing[0].ID)
	assert.Equal(t, int64(1), existing[1].ID)

	missing, err := NotExisting[string, *widget](context.Background(), m, Request[string]{
		Items:       []string{"c", "b", "a"},
		KeyMappings: []KeyMapping{{Column: "code"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, missing)
}

func TestPartition_DuplicatesAndRepeatedMatches(t *testing.T) {
	backend := newFakeBackend()
	backend.session.duplicate = true
	m := New(backend, Config{}, zap.NewNop())

	res, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{
		Items:   refs("a", "a", "b"),
		Columns: []string{"Code"},
	})
	require.NoError(t, err)

	// Each candidate appears once in exactly one partition; the first stored row wins.
	assert.Equal(t, []widget{{ID: 1, Code: "a"}, {ID: 1, Code: "a"}}, res.Existing)
	assert.Equal(t, refs("b"), res.NotExisting)
}

func TestPartition_EmptyInputTouchesNothing(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	res, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{
		Columns: []string{"NoSuchField"},
		Table:   "ghost",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Existing)
	assert.Empty(t, res.NotExisting)
	assert.Zero(t, backend.describeCalls)
	assert.Zero(t, backend.sessions)
}

func TestPartition_Batches(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{BatchSize: 2}, zap.NewNop())

	res, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{
		Items:   refs("a", "b", "c", "d", "e"),
		Columns: []string{"Code"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Existing, 2)

	s := backend.session
	require.Len(t, s.writes, 3)
	assert.Len(t, s.writes[0], 2)
	assert.Len(t, s.writes[2], 1)
	assert.Equal(t, 4, s.writes[2][0].Ordinal)
}

func TestPartition_StagingFailuresDropTheArea(t *testing.T) {
	t.Run("Write Error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.session.writeErr = errors.New("disk full")
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.ErrorIs(t, err, ErrStaging)
		var sErr *StagingError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, "write", sErr.Op)
		assert.Equal(t, 2, backend.session.drops)
		assert.Empty(t, backend.session.queries)
	})

	t.Run("Create Error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.session.createErr = errors.New("no temp space")
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		var sErr *StagingError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, "create", sErr.Op)
		assert.Equal(t, 2, backend.session.drops)
	})

	t.Run("Cleanup Drop Error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.session.dropErrAt = 2
		m := New(backend, Config{}, zap.NewNop())

		res, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.Nil(t, res)
		var sErr *StagingError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, "drop", sErr.Op)
	})

	t.Run("Query Error", func(t *testing.T) {
		backend := newFakeBackend()
		backend.session.queryErr = errors.New("deadlock")
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.NotErrorIs(t, err, ErrStaging)
		assert.Equal(t, 2, backend.session.drops)
	})
}

func TestPartition_CancellationStillDrops(t *testing.T) {
	backend := newFakeBackend()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend.session.onWrite = func() error {
		cancel()
		return nil
	}
	m := New(backend, Config{}, zap.NewNop())

	_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrStaging)

	require.Len(t, backend.session.dropCtxErrs, 2)
	assert.NoError(t, backend.session.dropCtxErrs[1], "cleanup runs on a live context")
}

func TestPartition_StoreErrors(t *testing.T) {
	t.Run("Session", func(t *testing.T) {
		backend := newFakeBackend()
		backend.sessionErr = errors.New("too many connections")
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorContains(t, err, "too many connections")
	})

	t.Run("Catalog", func(t *testing.T) {
		backend := newFakeBackend()
		backend.describeErr = errors.New("connection refused")
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Zero(t, backend.sessions)
	})

	t.Run("Ordinal Out Of Range", func(t *testing.T) {
		backend := newFakeBackend()
		backend.session.ordinalShift = 10
		m := New(backend, Config{}, zap.NewNop())

		_, err := Existing[widgetRef, widget](context.Background(), m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}})
		assert.ErrorContains(t, err, "outside")
	})
}

func TestPartition_MappingErrors(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "Unknown Entity Column",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), KeyMappings: []KeyMapping{{ItemField: "Code", Column: "Colour"}}})
				return err
			},
		},
		{
			name: "Unknown Item Field",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), KeyMappings: []KeyMapping{{ItemField: "Colour", Column: "Code"}}})
				return err
			},
		},
		{
			name: "Mappings And Columns",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}, KeyMappings: []KeyMapping{{ItemField: "Code", Column: "Code"}}})
				return err
			},
		},
		{
			name: "Missing Column Name",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), KeyMappings: []KeyMapping{{ItemField: "Code"}}})
				return err
			},
		},
		{
			name: "Item As Key With Two Columns",
			run: func() error {
				_, err := Existing[string, widget](ctx, m, Request[string]{Items: []string{"a"}, KeyMappings: []KeyMapping{{Column: "Code"}, {Column: "Size"}}})
				return err
			},
		},
		{
			name: "Non Scalar Item As Key",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), KeyMappings: []KeyMapping{{Column: "Code"}}})
				return err
			},
		},
		{
			name: "Non Struct Entity",
			run: func() error {
				_, err := Existing[string, string](ctx, m, Request[string]{Items: []string{"a"}, KeyMappings: []KeyMapping{{Column: "Code"}}})
				return err
			},
		},
		{
			name: "Nothing Shared",
			run: func() error {
				_, err := Existing[string, widget](ctx, m, Request[string]{Items: []string{"a"}})
				return err
			},
		},
		{
			name: "Missing Relation",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}, Table: "ghost"})
				return err
			},
		},
		{
			name: "Column Missing From Relation",
			run: func() error {
				_, err := Existing[widgetRef, widget](ctx, m, Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}, Table: "labelleds"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, ErrMapping)
			var mErr *MappingError
			assert.ErrorAs(t, err, &mErr)
		})
	}
	assert.Zero(t, backend.sessions, "mapping errors never reach staging")
}

func TestPartition_SharedColumnsByDefault(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	size := int64(4)
	_, err := Partition[widgetRef, widget](context.Background(), m, Request[widgetRef]{
		Items: []widgetRef{{Code: "a", Size: &size}},
	})
	require.NoError(t, err)

	area := backend.session.created[0]
	assert.Equal(t, []StagingColumn{{Name: "k0", Type: "varchar(32)"}, {Name: "k1", Type: "bigint"}}, area.Columns)
	assert.Equal(t, []KeyValue{Present("a"), Present(int64(4))}, backend.session.staged[0].Values)
}

func TestPartition_NilItem(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, zap.NewNop())

	_, err := Existing[*widgetRef, widget](context.Background(), m, Request[*widgetRef]{
		Items:   []*widgetRef{{Code: "a"}, nil},
		Columns: []string{"Code"},
	})
	var mErr *MappingError
	require.ErrorAs(t, err, &mErr)
	assert.Contains(t, mErr.Reason, "item 1 is nil")
}

func TestPartition_CatalogCache(t *testing.T) {
	req := Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}}

	t.Run("Cached", func(t *testing.T) {
		backend := newFakeBackend()
		m := New(backend, Config{CatalogTTLSeconds: 60}, zap.NewNop())
		for i := 0; i < 3; i++ {
			_, err := Existing[widgetRef, widget](context.Background(), m, req)
			require.NoError(t, err)
		}
		assert.Equal(t, 1, backend.describeCalls)

		m.InvalidateCatalog("WIDGETS")
		_, err := Existing[widgetRef, widget](context.Background(), m, req)
		require.NoError(t, err)
		assert.Equal(t, 2, backend.describeCalls)
	})

	t.Run("Disabled", func(t *testing.T) {
		backend := newFakeBackend()
		m := New(backend, Config{}, zap.NewNop())
		for i := 0; i < 3; i++ {
			_, err := Existing[widgetRef, widget](context.Background(), m, req)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, backend.describeCalls)
	})

	t.Run("Missing Relations Are Not Cached", func(t *testing.T) {
		backend := newFakeBackend()
		m := New(backend, Config{CatalogTTLSeconds: 60}, zap.NewNop())
		ghost := Request[widgetRef]{Items: refs("a"), Columns: []string{"Code"}, Table: "ghost"}

		_, err := Existing[widgetRef, widget](context.Background(), m, ghost)
		assert.ErrorIs(t, err, ErrMapping)

		backend.relations["ghost"] = widgetRelation()
		_, err = Existing[widgetRef, widget](context.Background(), m, ghost)
		assert.NoError(t, err)
		assert.Equal(t, 2, backend.describeCalls)
	})
}

func TestMatcher_Describe(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Config{}, nil)

	rel, err := m.Describe(context.Background(), "widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, rel.PrimaryKey())

	backend.describeErr = errors.New("boom")
	_, err = m.Describe(context.Background(), "widgets")
	var sErr *StoreError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "describe", sErr.Op)
}

func TestMatcher_TableName(t *testing.T) {
	m := New(newFakeBackend(), Config{}, nil)

	table, err := m.TableName(reflect.TypeFor[*widget]())
	require.NoError(t, err)
	assert.Equal(t, "widgets", table)

	_, err = m.TableName(reflect.TypeFor[int64]())
	assert.ErrorIs(t, err, ErrMapping)
}
