package utils

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ErrNotConvertible is returned when a value cannot be represented in the
// requested type without truncation or reinterpretation.
var ErrNotConvertible = errors.New("value not convertible")

// maxExactFloat is the largest integer magnitude a float64 holds exactly.
const maxExactFloat = 1 << 53

var timeType = reflect.TypeOf(time.Time{})

func notConvertible(val any, target string) error {
	return fmt.Errorf("%w: %T to %s", ErrNotConvertible, val, target)
}

// ToInt64 converts integer kinds, and floats holding an integral value, to int64.
// Strings are rejected rather than parsed.
func ToInt64(val any) (int64, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrNotConvertible, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v is not an integral int64", ErrNotConvertible, f)
		}
		return int64(f), nil
	default:
		return 0, notConvertible(val, "int64")
	}
}

// ToUint64 converts non-negative integer kinds, and integral non-negative floats, to uint64.
func ToUint64(val any) (uint64, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if i < 0 {
			return 0, fmt.Errorf("%w: %d is negative", ErrNotConvertible, i)
		}
		return uint64(i), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, fmt.Errorf("%w: %v is not an integral uint64", ErrNotConvertible, f)
		}
		return uint64(f), nil
	default:
		return 0, notConvertible(val, "uint64")
	}
}

// ToFloat64 converts floats, and integers a float64 represents exactly, to float64.
func ToFloat64(val any) (float64, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if i > maxExactFloat || i < -maxExactFloat {
			return 0, fmt.Errorf("%w: %d loses precision as float64", ErrNotConvertible, i)
		}
		return float64(i), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > maxExactFloat {
			return 0, fmt.Errorf("%w: %d loses precision as float64", ErrNotConvertible, u)
		}
		return float64(u), nil
	default:
		return 0, notConvertible(val, "float64")
	}
}

// CheckWidth reports whether val, already converted by ToInt64, ToUint64 or
// ToFloat64, is representable in t. Non-numeric kinds are not checked.
func CheckWidth(val any, t reflect.Type) error {
	zero := reflect.Zero(t)
	switch v := val.(type) {
	case int64:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if zero.OverflowInt(v) {
				return fmt.Errorf("%w: %d overflows %s", ErrNotConvertible, v, t)
			}
		}
	case uint64:
		switch t.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if zero.OverflowUint(v) {
				return fmt.Errorf("%w: %d overflows %s", ErrNotConvertible, v, t)
			}
		}
	case float64:
		if t.Kind() == reflect.Float32 {
			if zero.OverflowFloat(v) || float64(float32(v)) != v {
				return fmt.Errorf("%w: %v is not exact as %s", ErrNotConvertible, v, t)
			}
		}
	}
	return nil
}

// ToString converts string kinds and byte slices to string.
func ToString(val any) (string, error) {
	v := reflect.ValueOf(val)
	switch {
	case v.Kind() == reflect.String:
		return v.String(), nil
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return string(v.Bytes()), nil
	default:
		return "", notConvertible(val, "string")
	}
}

// ToBytes converts byte slices and string kinds to []byte.
func ToBytes(val any) ([]byte, error) {
	v := reflect.ValueOf(val)
	switch {
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return v.Bytes(), nil
	case v.Kind() == reflect.String:
		return []byte(v.String()), nil
	default:
		return nil, notConvertible(val, "[]byte")
	}
}

// ToBool accepts bool kinds only; 0/1 and "true" are not reinterpreted.
func ToBool(val any) (bool, error) {
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Bool {
		return v.Bool(), nil
	}
	return false, notConvertible(val, "bool")
}

// ToTime accepts time.Time and types convertible to it.
func ToTime(val any) (time.Time, error) {
	v := reflect.ValueOf(val)
	if v.IsValid() && v.Type().ConvertibleTo(timeType) && v.Kind() == reflect.Struct {
		return v.Convert(timeType).Interface().(time.Time), nil
	}
	return time.Time{}, notConvertible(val, "time.Time")
}
