package match

import "reflect"

// outcome is the untyped result of one pipeline run.
type outcome struct {
	existing    []reflect.Value
	notExisting []reflect.Value
}

// assemble walks ordinals [0, n) once, so both partitions keep input order
// regardless of join or staging order.
func assemble(items reflect.Value, matched map[int]reflect.Value) *outcome {
	n := items.Len()
	out := &outcome{
		existing:    make([]reflect.Value, 0, len(matched)),
		notExisting: make([]reflect.Value, 0, n-len(matched)),
	}
	for i := 0; i < n; i++ {
		if entity, ok := matched[i]; ok {
			out.existing = append(out.existing, entity)
			continue
		}
		out.notExisting = append(out.notExisting, items.Index(i))
	}
	return out
}
