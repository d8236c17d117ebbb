package utils

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type code string

func TestToInt64(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"Int", 42, 42, false},
		{"Int8", int8(-3), -3, false},
		{"Uint32", uint32(7), 7, false},
		{"IntegralFloat", 80.0, 80, false},
		{"FractionalFloat", 1.5, 0, true},
		{"UintOverflow", uint64(math.MaxUint64), 0, true},
		{"NumericString", "7", 0, true},
		{"Bool", true, 0, true},
		{"Nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt64(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotConvertible)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToUint64(t *testing.T) {
	got, err := ToUint64(int64(12))
	assert.NoError(t, err)
	assert.Equal(t, uint64(12), got)

	_, err = ToUint64(-1)
	assert.ErrorIs(t, err, ErrNotConvertible)

	_, err = ToUint64(2.5)
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestToFloat64(t *testing.T) {
	got, err := ToFloat64(int64(81))
	assert.NoError(t, err)
	assert.Equal(t, 81.0, got)

	got, err = ToFloat64(float32(0.5))
	assert.NoError(t, err)
	assert.Equal(t, 0.5, got)

	_, err = ToFloat64(int64(1<<53 + 1))
	assert.ErrorIs(t, err, ErrNotConvertible)

	_, err = ToFloat64("81")
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestToStringAndBytes(t *testing.T) {
	s, err := ToString(code("ERICB"))
	assert.NoError(t, err)
	assert.Equal(t, "ERICB", s)

	s, err = ToString([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "abc", s)

	_, err = ToString(12)
	assert.ErrorIs(t, err, ErrNotConvertible)

	b, err := ToBytes("xyz")
	assert.NoError(t, err)
	assert.Equal(t, []byte("xyz"), b)

	_, err = ToBytes(3.2)
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestToBool(t *testing.T) {
	v, err := ToBool(true)
	assert.NoError(t, err)
	assert.True(t, v)

	_, err = ToBool(1)
	assert.ErrorIs(t, err, ErrNotConvertible)

	_, err = ToBool("true")
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestToTime(t *testing.T) {
	now := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := ToTime(now)
	assert.NoError(t, err)
	assert.True(t, now.Equal(got))

	_, err = ToTime("2019-01-01")
	assert.ErrorIs(t, err, ErrNotConvertible)
}

func TestCheckWidth(t *testing.T) {
	type level int8

	tests := []struct {
		name    string
		in      any
		target  reflect.Type
		wantErr bool
	}{
		{"Int8 Fits", int64(127), reflect.TypeFor[int8](), false},
		{"Int8 Overflow", int64(128), reflect.TypeFor[int8](), true},
		{"Int8 Underflow", int64(-129), reflect.TypeFor[int8](), true},
		{"Named Int8 Overflow", int64(300), reflect.TypeFor[level](), true},
		{"Int16 Fits", int64(-32768), reflect.TypeFor[int16](), false},
		{"Int32 Overflow", int64(math.MaxInt32) + 1, reflect.TypeFor[int32](), true},
		{"Int64 Unchecked", int64(math.MaxInt64), reflect.TypeFor[int64](), false},
		{"Uint8 Overflow", uint64(256), reflect.TypeFor[uint8](), true},
		{"Uint16 Fits", uint64(65535), reflect.TypeFor[uint16](), false},
		{"Float32 Exact", 0.25, reflect.TypeFor[float32](), false},
		{"Float32 Inexact", 0.1, reflect.TypeFor[float32](), true},
		{"Float32 Overflow", 1e39, reflect.TypeFor[float32](), true},
		{"Float64 Unchecked", 0.1, reflect.TypeFor[float64](), false},
		{"String Unchecked", "x", reflect.TypeFor[string](), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWidth(tt.in, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotConvertible)
				return
			}
			assert.NoError(t, err)
		})
	}
}
