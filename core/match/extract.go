package match

import (
	"database/sql/driver"
	"fmt"
	"reflect"

	"keymatch/core/utils"

	"gorm.io/gorm/schema"
)

// extract reads one key tuple per item, tuple i belonging to items[i].
// It runs before any staging so a bad value never reaches the store.
func extract(items reflect.Value, layout *keyLayout) ([]KeyTuple, error) {
	n := items.Len()
	tuples := make([]KeyTuple, n)
	for i := 0; i < n; i++ {
		item := items.Index(i)
		values := make([]KeyValue, len(layout.keys))
		for j, key := range layout.keys {
			kv, err := readKey(item, key, i)
			if err != nil {
				return nil, err
			}
			values[j] = kv
		}
		tuples[i] = KeyTuple{Ordinal: i, Values: values}
	}
	return tuples, nil
}

// deref follows interfaces and pointers; ok is false on nil.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func readKey(item reflect.Value, key keyColumn, ordinal int) (KeyValue, error) {
	v := item
	if key.itemIndex != nil {
		s, ok := deref(item)
		if !ok {
			return KeyValue{}, &MappingError{
				ItemField: key.itemField,
				Column:    key.column(),
				Reason:    fmt.Sprintf("item %d is nil", ordinal),
			}
		}
		f, err := s.FieldByIndexErr(key.itemIndex)
		if err != nil {
			// nil embedded struct pointer on the path
			return Null(), nil
		}
		v = f
	}
	return coerce(v, key, ordinal)
}

// coerce converts a key value to the Go representation of its column type.
// Absent values (nil pointers, nil driver values) become Null.
func coerce(v reflect.Value, key keyColumn, ordinal int) (KeyValue, error) {
	v, ok := deref(v)
	if !ok {
		return Null(), nil
	}

	mismatch := func(err error) error {
		want := string(key.kind)
		if want == "" {
			want = key.field.FieldType.String()
		}
		return &TypeMismatchError{
			Ordinal: ordinal,
			Column:  key.column(),
			Got:     v.Type().String(),
			Want:    want,
			Err:     err,
		}
	}

	// Custom column types (uuid, json, ...) accept only the entity's own Go type.
	if key.kind == "" {
		target := indirectType(key.field.FieldType)
		if v.Type() != target && (v.Kind() != target.Kind() || !v.Type().ConvertibleTo(target)) {
			return KeyValue{}, mismatch(nil)
		}
		raw, valid, err := driverValue(v.Convert(target))
		if err != nil {
			return KeyValue{}, mismatch(err)
		}
		if !valid {
			return Null(), nil
		}
		return Present(raw), nil
	}

	raw, valid, err := driverValue(v)
	if err != nil {
		return KeyValue{}, mismatch(err)
	}
	if !valid {
		return Null(), nil
	}

	var out any
	switch key.kind {
	case schema.Bool:
		out, err = utils.ToBool(raw)
	case schema.Int:
		out, err = utils.ToInt64(raw)
	case schema.Uint:
		out, err = utils.ToUint64(raw)
	case schema.Float:
		out, err = utils.ToFloat64(raw)
	case schema.String:
		out, err = utils.ToString(raw)
	case schema.Time:
		out, err = utils.ToTime(raw)
	case schema.Bytes:
		out, err = utils.ToBytes(raw)
	}
	if err == nil {
		err = utils.CheckWidth(out, key.field.IndirectFieldType)
	}
	if err != nil {
		return KeyValue{}, mismatch(err)
	}
	return Present(out), nil
}

// driverValue unwraps driver.Valuer implementations (value or pointer receiver).
func driverValue(v reflect.Value) (any, bool, error) {
	raw := v.Interface()
	valuer, ok := raw.(driver.Valuer)
	if !ok && reflect.PointerTo(v.Type()).Implements(valuerType) {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		valuer, ok = p.Interface().(driver.Valuer)
	}
	if !ok {
		return raw, true, nil
	}
	dv, err := valuer.Value()
	if err != nil {
		return nil, false, err
	}
	return dv, dv != nil, nil
}
