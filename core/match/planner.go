package match

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// planJoin builds the set-based join between the staging area and the relation.
// Every key column must match. Plain equality never matches null; columns
// flagged NullMatchesNull also match null against null.
//
// withRows selects the full stored row next to the ordinal; otherwise only
// the distinct matched ordinals are read.
func planJoin(s Session, area *StagingArea, layout *keyLayout, withRows bool) string {
	var b strings.Builder

	ordinal := "s." + s.Quote(OrdinalColumn)
	if withRows {
		fmt.Fprintf(&b, "SELECT %s, t.* FROM ", ordinal)
	} else {
		fmt.Fprintf(&b, "SELECT DISTINCT %s FROM ", ordinal)
	}
	fmt.Fprintf(&b, "%s s INNER JOIN %s t ON ", s.Quote(area.Name), s.Quote(layout.table))

	for i, key := range layout.keys {
		if i > 0 {
			b.WriteString(" AND ")
		}
		target := "t." + s.Quote(key.column())
		staged := "s." + s.Quote(area.Columns[i].Name)
		if key.nullMatchesNull {
			fmt.Fprintf(&b, "(%s = %s OR (%s IS NULL AND %s IS NULL))", target, staged, target, staged)
		} else {
			fmt.Fprintf(&b, "%s = %s", target, staged)
		}
	}

	fmt.Fprintf(&b, " ORDER BY %s", ordinal)
	return b.String()
}

// collect maps join output back to ordinals. The first row seen for an
// ordinal wins. Same-type calls reuse the caller's own item instance.
func collect(ctx context.Context, items reflect.Value, layout *keyLayout, rows []MatchedRow, sameType bool) (map[int]reflect.Value, error) {
	matched := make(map[int]reflect.Value, len(rows))
	for _, row := range rows {
		if row.Ordinal < 0 || row.Ordinal >= items.Len() {
			return nil, fmt.Errorf("join returned ordinal %d outside [0, %d)", row.Ordinal, items.Len())
		}
		if _, seen := matched[row.Ordinal]; seen {
			continue
		}
		if sameType {
			matched[row.Ordinal] = items.Index(row.Ordinal)
			continue
		}
		entity, err := layout.materialize(ctx, row)
		if err != nil {
			return nil, err
		}
		matched[row.Ordinal] = entity
	}
	return matched, nil
}

// materialize builds an entity value from a stored row.
func (l *keyLayout) materialize(ctx context.Context, row MatchedRow) (reflect.Value, error) {
	ptr := reflect.New(l.entity.ModelType)
	for i, col := range row.Columns {
		field := lookupEntityField(l.entity, col)
		if field == nil {
			continue
		}
		if err := field.Set(ctx, ptr.Elem(), row.Values[i]); err != nil {
			return reflect.Value{}, fmt.Errorf("materialize %s.%s: %w", l.table, col, err)
		}
	}
	if l.entityType.Kind() == reflect.Ptr {
		return ptr, nil
	}
	return ptr.Elem(), nil
}
