package match

import (
	"errors"
	"fmt"
)

var (
	// ErrMapping reports a key mapping that cannot be resolved against the
	// item or entity shape, or a key of zero arity.
	ErrMapping = errors.New("key mapping error")
	// ErrTypeMismatch reports a key value that cannot be coerced to its
	// column's declared type.
	ErrTypeMismatch = errors.New("key type mismatch")
	// ErrStaging reports a staging area that could not be created, written or removed.
	ErrStaging = errors.New("staging failure")
	// ErrStoreUnavailable reports a failed store connection or query.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MappingError describes an unresolvable key mapping.
type MappingError struct {
	ItemField string
	Column    string
	Reason    string
}

func (e *MappingError) Error() string {
	switch {
	case e.ItemField != "" && e.Column != "":
		return fmt.Sprintf("key mapping %s -> %s: %s", e.ItemField, e.Column, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("key mapping -> %s: %s", e.Column, e.Reason)
	case e.ItemField != "":
		return fmt.Sprintf("key mapping %s: %s", e.ItemField, e.Reason)
	default:
		return "key mapping: " + e.Reason
	}
}

func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// TypeMismatchError describes a key value that was refused by coercion.
type TypeMismatchError struct {
	Ordinal int
	Column  string
	Got     string
	Want    string
	Err     error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("item %d: column %s: cannot use %s as %s", e.Ordinal, e.Column, e.Got, e.Want)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

func (e *TypeMismatchError) Unwrap() error { return e.Err }

// StagingError wraps a failed staging area operation (create, write, drop).
type StagingError struct {
	Area string
	Op   string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("staging %s %s: %v", e.Op, e.Area, e.Err)
}

func (e *StagingError) Is(target error) bool { return target == ErrStaging }

func (e *StagingError) Unwrap() error { return e.Err }

// StoreError wraps a driver error; Unwrap returns it unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreError) Unwrap() error { return e.Err }
