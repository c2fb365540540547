package domain

import (
	"errors"
	"fmt"
)

// FetchError reports a failed query against the document database.
// Callers must discard any partial result.
type FetchError struct {
	Category Category
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DuplicateBindingError is returned when a correlation key already has a live binding.
// The existing binding is left untouched.
type DuplicateBindingError struct {
	Key string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("binding already exists for key %q", e.Key)
}

// UnknownBindingError is returned when no live binding matches a key: never
// created, already consumed, expired or evicted.
type UnknownBindingError struct {
	Key string
}

func (e *UnknownBindingError) Error() string {
	return fmt.Sprintf("no live binding for key %q", e.Key)
}

// IndexOutOfRangeError is returned when a selection index does not address a candidate.
type IndexOutOfRangeError struct {
	Key   string
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("selection index %d out of range [0,%d) for key %q", e.Index, e.Len, e.Key)
}

// IsInvalidSelection reports whether err means the user's pick cannot be honored.
// Both cases get the same user-facing answer.
func IsInvalidSelection(err error) bool {
	var unknown *UnknownBindingError
	var outOfRange *IndexOutOfRangeError
	return errors.As(err, &unknown) || errors.As(err, &outOfRange)
}
