// Package deferred queues actions produced on any goroutine for execution,
// one at a time and in enqueue order, on the single goroutine that drives
// frames.
//
// Every Enqueue asks the queue's Requester for exactly one future drain.
// The owning goroutine answers each request with one DrainOne call. A drain
// with nothing to pop means requests and actions have fallen out of step,
// which is a bug in the host and panics with ErrDesynchronized.
package deferred

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrDesynchronized is the panic value (wrapped) raised when a drain
	// finds the queue empty.
	ErrDesynchronized = errors.New("deferred: queue desynchronization")

	// ErrNilAction is the panic value raised when a nil action is enqueued.
	ErrNilAction = errors.New("deferred: nil action")
)

// compactThreshold bounds how many consumed slots accumulate at the front
// of the backing slice before it is compacted.
const compactThreshold = 1024

// Requester is the host's "call DrainOne on the owning goroutine soon"
// capability. RequestDrain must be safe for concurrent use and must not
// block.
type Requester interface {
	RequestDrain()
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func()

// RequestDrain calls f.
func (f RequesterFunc) RequestDrain() { f() }

// Action is a queued unit of work and its position in enqueue order.
type Action struct {
	Seq uint64
	Fn  func()
}

// Queue is a multi-producer, single-consumer queue of actions.
type Queue struct {
	requester Requester
	logger    *slog.Logger

	mu    sync.Mutex
	items []Action
	head  int
	seq   uint64

	drained atomic.Uint64
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// New creates a queue that asks req for a drain on every Enqueue.
func New(req Requester, opts ...Option) *Queue {
	if req == nil {
		panic("deferred: nil Requester")
	}
	q := &Queue{requester: req}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

// Enqueue appends fn to the tail of the queue and requests one drain. It is
// safe to call from any goroutine, including from inside a drained action.
// It returns the action's sequence number. It panics with ErrNilAction if fn
// is nil.
func (q *Queue) Enqueue(fn func()) uint64 {
	if fn == nil {
		panic(ErrNilAction)
	}

	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.items = append(q.items, Action{Seq: seq, Fn: fn})
	q.mu.Unlock()

	q.requester.RequestDrain()
	return seq
}

// DrainOne pops the head action and runs it on the calling goroutine. It
// must only be called by the owning goroutine in answer to a drain request.
// It panics with ErrDesynchronized if the queue is empty.
func (q *Queue) DrainOne() {
	a, ok := q.pop()
	if !ok {
		err := fmt.Errorf("%w: drain requested after %d actions drained, none pending",
			ErrDesynchronized, q.drained.Load())
		q.logger.Error("deferred queue desynchronized", slog.String("error", err.Error()))
		panic(err)
	}
	a.Fn()
	q.drained.Add(1)
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Enqueued returns the total number of actions ever enqueued.
func (q *Queue) Enqueued() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq
}

// Drained returns the total number of actions run.
func (q *Queue) Drained() uint64 {
	return q.drained.Load()
}

func (q *Queue) pop() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return Action{}, false
	}
	a := q.items[q.head]
	q.items[q.head] = Action{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return a, true
}
