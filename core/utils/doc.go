// Package utils provides common utility functions for keymatch.
// It holds the strict scalar conversions used when candidate key values are
// coerced to a column's declared type: a value either converts exactly or
// the conversion fails with ErrNotConvertible.
package utils
