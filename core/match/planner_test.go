package match

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func widgetLayout(t *testing.T, nullMatchesNull bool) *keyLayout {
	t.Helper()
	sch, err := schema.Parse(&widget{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return &keyLayout{
		table:      "widgets",
		entity:     sch,
		entityType: reflect.TypeFor[widget](),
		keys: []keyColumn{
			{field: sch.LookUpField("Code"), kind: schema.String, declared: "varchar(32)"},
			{field: sch.LookUpField("Size"), kind: schema.Int, declared: "bigint", nullMatchesNull: nullMatchesNull},
		},
	}
}

func TestPlanJoin(t *testing.T) {
	s := &fakeSession{}
	area := &StagingArea{Name: "km_1", Columns: []StagingColumn{{Name: "k0"}, {Name: "k1"}}}

	t.Run("Rows", func(t *testing.T) {
		got := planJoin(s, area, widgetLayout(t, false), true)
		assert.Equal(t,
			`SELECT s."ordinal", t.* FROM "km_1" s INNER JOIN "widgets" t ON t."code" = s."k0" AND t."size" = s."k1" ORDER BY s."ordinal"`,
			got)
	})

	t.Run("Ordinals Only", func(t *testing.T) {
		got := planJoin(s, area, widgetLayout(t, false), false)
		assert.Equal(t,
			`SELECT DISTINCT s."ordinal" FROM "km_1" s INNER JOIN "widgets" t ON t."code" = s."k0" AND t."size" = s."k1" ORDER BY s."ordinal"`,
			got)
	})

	t.Run("Null Matches Null", func(t *testing.T) {
		got := planJoin(s, area, widgetLayout(t, true), false)
		assert.Contains(t, got, `t."code" = s."k0" AND (t."size" = s."k1" OR (t."size" IS NULL AND s."k1" IS NULL))`)
	})
}

func TestMaterialize(t *testing.T) {
	layout := widgetLayout(t, false)

	v, err := layout.materialize(context.Background(), MatchedRow{
		Ordinal: 0,
		Columns: []string{"id", "code", "size", "unknown"},
		Values:  []any{int64(9), []byte("a"), int64(3), "ignored"},
	})
	require.NoError(t, err)

	w := v.Interface().(widget)
	assert.Equal(t, int64(9), w.ID)
	assert.Equal(t, "a", w.Code)
	require.NotNil(t, w.Size)
	assert.Equal(t, int64(3), *w.Size)

	layout.entityType = reflect.TypeFor[*widget]()
	v, err = layout.materialize(context.Background(), MatchedRow{Columns: []string{"id"}, Values: []any{int64(1)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Interface().(*widget).ID)
}

func TestAssemble(t *testing.T) {
	items := reflect.ValueOf([]string{"a", "b", "c", "d"})
	matched := map[int]reflect.Value{
		3: reflect.ValueOf("D"),
		1: reflect.ValueOf("B"),
	}

	out := assemble(items, matched)

	var existing, missing []string
	for _, v := range out.existing {
		existing = append(existing, v.String())
	}
	for _, v := range out.notExisting {
		missing = append(missing, v.String())
	}
	assert.Equal(t, []string{"B", "D"}, existing)
	assert.Equal(t, []string{"a", "c"}, missing)
}

func TestEffectiveBatchSize(t *testing.T) {
	area := &StagingArea{Columns: []StagingColumn{{Name: "k0"}, {Name: "k1"}}}

	assert.Equal(t, 1000, effectiveBatchSize(1000, &fakeSession{}, area))
	assert.Equal(t, DefaultBatchSize, effectiveBatchSize(0, &fakeSession{}, area))
	assert.Equal(t, 3, effectiveBatchSize(1000, &fakeSession{maxParams: 10}, area))
	assert.Equal(t, 1, effectiveBatchSize(1000, &fakeSession{maxParams: 2}, area))
	assert.Equal(t, 21845, effectiveBatchSize(100000, &fakeSession{maxParams: 65535}, area))
}

func TestNewStagingArea(t *testing.T) {
	layout := widgetLayout(t, false)
	a := newStagingArea(layout)
	b := newStagingArea(layout)

	assert.NotEqual(t, a.Name, b.Name)
	assert.Len(t, a.Name, len(stagingPrefix)+32)
	assert.Equal(t, []string{OrdinalColumn, "k0", "k1"}, a.ColumnNames())
	assert.Equal(t, "bigint", a.Columns[1].Type)
}
