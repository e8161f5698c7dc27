package buffer

import (
	"errors"
	"fmt"

	"github.com/NavarchProject/framekit/pkg/cycle"
)

// ErrIndexOutOfRange is the panic value (wrapped) raised by strict accessors
// when an index falls outside the container.
var ErrIndexOutOfRange = errors.New("buffer: index out of range")

func rangeError(i, n int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, n)
}

// Ring is a fixed-length circular buffer with a moving write cursor.
//
// Indices passed to Get/Set and GetMod/SetMod are relative to the cursor:
// index 0 is the slot the next Push will overwrite (the oldest value once
// the ring has wrapped) and index -1 is the most recently pushed value.
type Ring[T any] struct {
	values []T
	cursor int
}

// NewRing creates a ring of the given length. It panics if length is not
// positive.
func NewRing[T any](length int) *Ring[T] {
	if length <= 0 {
		panic("buffer: non-positive Ring length")
	}
	return &Ring[T]{values: make([]T, length)}
}

// Len returns the fixed length.
func (r *Ring[T]) Len() int { return len(r.values) }

// Cursor returns the current write position, always in [0, Len()).
func (r *Ring[T]) Cursor() int { return r.cursor }

// Push writes v at the cursor, advances the cursor and returns its new
// position.
func (r *Ring[T]) Push(v T) int {
	r.values[r.cursor] = v
	r.cursor = (r.cursor + 1) % len(r.values)
	return r.cursor
}

// PushRange pushes every value in order. A slice exactly Len() long replaces
// the storage wholesale and leaves the cursor where it was.
func (r *Ring[T]) PushRange(values []T) int {
	if len(values) == len(r.values) {
		copy(r.values, values)
		return r.cursor
	}
	for _, v := range values {
		r.Push(v)
	}
	return r.cursor
}

// Pop retreats the cursor and returns the value found there, undoing the
// last Push.
func (r *Ring[T]) Pop() T {
	r.cursor = cycle.AbsMod(r.cursor-1, len(r.values))
	return r.values[r.cursor]
}

// Get returns the value at cursor-relative index i. Negative indices count
// back from the cursor. It panics with ErrIndexOutOfRange when the
// normalized index is outside [0, Len()).
func (r *Ring[T]) Get(i int) T {
	return r.values[r.slot(i)]
}

// Set stores v at cursor-relative index i with the same rules as Get.
func (r *Ring[T]) Set(i int, v T) {
	r.values[r.slot(i)] = v
}

// GetMod is like Get but wraps i modulo Len() and never panics.
func (r *Ring[T]) GetMod(i int) T {
	return r.values[r.slotMod(i)]
}

// SetMod is like Set but wraps i modulo Len() and never panics.
func (r *Ring[T]) SetMod(i int, v T) {
	r.values[r.slotMod(i)] = v
}

// Values returns the contents in storage order, ignoring the cursor.
func (r *Ring[T]) Values() []T {
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func (r *Ring[T]) slot(i int) int {
	n := len(r.values)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		panic(rangeError(i, n))
	}
	return (r.cursor + j) % n
}

func (r *Ring[T]) slotMod(i int) int {
	return (r.cursor + cycle.AbsMod(i, len(r.values))) % len(r.values)
}
