// Package worker offloads blocking work from the frame-driving goroutine to
// a pool of background goroutines and hands the result back as a Future.
//
// Submitting never blocks the caller. Work runs to completion once
// submitted; awaiting a Future can be abandoned with a context, but the
// work itself is not cancelled. Futures complete on a pool goroutine, so
// code that must touch frame-owned state should use RunOn, which resumes
// through a deferred.Queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// ErrPoolClosed is returned by futures submitted after Close.
var ErrPoolClosed = errors.New("worker: pool is closed")

// Options configures a Pool.
type Options struct {
	// Workers is the maximum number of submissions running at once
	// (default: GOMAXPROCS).
	Workers int

	// SubmitRate caps how many submissions per second start running.
	// Zero disables the limit.
	SubmitRate float64

	// SubmitBurst is the limiter burst size (default: Workers).
	SubmitBurst int

	// Logger for pool events (default: slog.Default()).
	Logger *slog.Logger
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Workers   int
	InFlight  int64
	Waiting   int64
	Submitted uint64
	Completed uint64
	Failed    uint64
}

// Pool runs submitted functions on background goroutines, at most
// Options.Workers at a time.
type Pool struct {
	logger  *slog.Logger
	workers int
	permits chan struct{}
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	inFlight  atomic.Int64
	waiting   atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a pool with the given options.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.SubmitBurst <= 0 {
		opts.SubmitBurst = opts.Workers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Pool{
		logger:  opts.Logger,
		workers: opts.Workers,
		permits: make(chan struct{}, opts.Workers),
	}
	if opts.SubmitRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.SubmitRate), opts.SubmitBurst)
	}
	return p
}

// Close stops accepting submissions and waits for every submitted function
// to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	wasClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	if !wasClosed {
		p.logger.Debug("worker pool closed", slog.Uint64("completed", p.completed.Load()))
	}
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		InFlight:  p.inFlight.Load(),
		Waiting:   p.waiting.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// submit schedules job on a new goroutine that waits for a permit. The
// caller never waits.
func (p *Pool) submit(job func() error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	p.waiting.Add(1)
	p.wg.Add(1)
	go p.run(job)
	return nil
}

func (p *Pool) run(job func() error) {
	defer p.wg.Done()

	if p.limiter != nil {
		// Wait only fails on a cancelled context or a burst below 1, and
		// NewPool keeps the burst at least 1.
		_ = p.limiter.Wait(context.Background())
	}
	p.permits <- struct{}{}
	p.waiting.Add(-1)
	p.inFlight.Add(1)

	defer func() {
		p.inFlight.Add(-1)
		<-p.permits
	}()

	if err := job(); err != nil {
		p.failed.Add(1)
		var pe *PanicError
		if errors.As(err, &pe) {
			p.logger.Error("worker recovered panic",
				slog.Any("panic", pe.Value),
				slog.String("stack", string(pe.Stack)),
			)
		}
	}
	p.completed.Add(1)
}
