package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/NavarchProject/framekit/pkg/deferred"
)

// PanicError is the error a Future carries when its work panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker: work panicked: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Future is the eventual result of work submitted to a Pool.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed when the work has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the work has finished.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the work finishes and returns its result and error
// unchanged. If ctx ends first it returns ctx.Err(); the work keeps
// running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Run submits work to p and returns a Future for its result.
func Run[T any](p *Pool, work func() (T, error)) *Future[T] {
	return runWith(p, work, nil)
}

// Go submits a function with no result, for fire-and-forget work whose
// completion or error the caller may still want to observe.
func Go(p *Pool, work func() error) *Future[struct{}] {
	return Run(p, func() (struct{}, error) {
		return struct{}{}, work()
	})
}

// RunOn submits work to p and, once it finishes, enqueues then on q so that
// it runs on the goroutine draining q. The returned Future completes before
// then is enqueued.
func RunOn[T any](p *Pool, q *deferred.Queue, work func() (T, error), then func(T, error)) *Future[T] {
	return runWith(p, work, func(v T, err error) {
		q.Enqueue(func() { then(v, err) })
	})
}

func runWith[T any](p *Pool, work func() (T, error), onDone func(T, error)) *Future[T] {
	f := newFuture[T]()
	finish := func(v T, err error) {
		f.complete(v, err)
		if onDone != nil {
			onDone(v, err)
		}
	}

	err := p.submit(func() error {
		v, err := call(work)
		finish(v, err)
		return err
	})
	if err != nil {
		var zero T
		finish(zero, err)
	}
	return f
}

// call runs work, converting a panic into a *PanicError.
func call[T any](work func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return work()
}
