// Package buffer provides fixed-capacity containers used for bookkeeping
// in the frame runtime.
//
// FIFO is a bounded queue that silently drops its oldest element when full.
// Ring is a fixed-length circular buffer indexed relative to a moving cursor.
// Neither type is safe for concurrent use.
package buffer

import "iter"

// FIFO is a queue holding at most Cap() elements. Enqueueing into a full
// FIFO evicts the front (oldest) element first.
type FIFO[T any] struct {
	items []T
	head  int
	count int
}

// NewFIFO creates a FIFO with the given capacity. It panics if capacity is
// not positive.
func NewFIFO[T any](capacity int) *FIFO[T] {
	if capacity <= 0 {
		panic("buffer: non-positive FIFO capacity")
	}
	return &FIFO[T]{items: make([]T, capacity)}
}

// Cap returns the fixed capacity.
func (f *FIFO[T]) Cap() int { return len(f.items) }

// Len returns the number of queued elements.
func (f *FIFO[T]) Len() int { return f.count }

// Full reports whether the next Enqueue will evict.
func (f *FIFO[T]) Full() bool { return f.count == len(f.items) }

// Empty reports whether the FIFO holds no elements.
func (f *FIFO[T]) Empty() bool { return f.count == 0 }

// Enqueue appends v at the tail, evicting the oldest element if full.
func (f *FIFO[T]) Enqueue(v T) {
	if f.Full() {
		f.Dequeue()
	}
	f.items[(f.head+f.count)%len(f.items)] = v
	f.count++
}

// Dequeue removes and returns the oldest element. It panics if the FIFO is
// empty.
func (f *FIFO[T]) Dequeue() T {
	if f.count == 0 {
		panic("buffer: Dequeue on empty FIFO")
	}
	var zero T
	v := f.items[f.head]
	f.items[f.head] = zero
	f.head = (f.head + 1) % len(f.items)
	f.count--
	return v
}

// Peek returns the oldest element without removing it. It panics if the
// FIFO is empty.
func (f *FIFO[T]) Peek() T {
	if f.count == 0 {
		panic("buffer: Peek on empty FIFO")
	}
	return f.items[f.head]
}

// At returns the i-th element counted from the oldest. It panics with
// ErrIndexOutOfRange if i is outside [0, Len()).
func (f *FIFO[T]) At(i int) T {
	if i < 0 || i >= f.count {
		panic(rangeError(i, f.count))
	}
	return f.items[(f.head+i)%len(f.items)]
}

// Items returns a copy of the contents, oldest first.
func (f *FIFO[T]) Items() []T {
	out := make([]T, 0, f.count)
	for v := range f.All() {
		out = append(out, v)
	}
	return out
}

// All iterates over the contents, oldest first.
func (f *FIFO[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < f.count; i++ {
			if !yield(f.items[(f.head+i)%len(f.items)]) {
				return
			}
		}
	}
}
