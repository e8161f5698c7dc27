// Package cycle implements wraparound arithmetic and stepping through an
// ordered set of values.
package cycle

import (
	"errors"
	"fmt"
)

// ErrValueNotFound is returned when a value is not a member of the set
// being stepped through.
var ErrValueNotFound = errors.New("cycle: value not found")

// Integer is the set of integer types AbsMod accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// AbsMod returns v modulo d with the sign of d, so AbsMod(-1, 4) == 3.
func AbsMod[T Integer](v, d T) T {
	return (v%d + d) % d
}

// Next returns the value following v in values, wrapping to the first
// element after the last. If v is not present the first element is
// returned. It panics if values is empty.
func Next[T comparable](values []T, v T) T {
	for i, it := range values {
		if it == v {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// Prev returns the value preceding v in values, wrapping to the last
// element before the first.
func Prev[T comparable](values []T, v T) (T, error) {
	for i, it := range values {
		if it == v {
			return values[AbsMod(i-1, len(values))], nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %v", ErrValueNotFound, v)
}
