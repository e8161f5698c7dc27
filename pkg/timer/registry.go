package timer

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NavarchProject/framekit/pkg/buffer"
	"github.com/NavarchProject/framekit/pkg/clock"
)

// DefaultHistorySize is the number of fire records a Registry keeps unless
// configured otherwise.
const DefaultHistorySize = 64

// Fire records a single timer firing.
type Fire struct {
	ID        uuid.UUID
	Name      string
	At        clock.Ticks
	Repeating bool
}

// Registry owns a set of timers and fires them against a FrameClock.
//
// Add, Remove, Len and Timers are safe to call from any goroutine. Tick must
// only be called from the frame-driving goroutine.
type Registry struct {
	clock  *clock.FrameClock
	logger *slog.Logger

	mu      sync.Mutex
	timers  []*Timer
	members map[*Timer]struct{}
	history *buffer.FIFO[Fire]

	fired atomic.Uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHistorySize sets how many fire records are retained (default: 64).
func WithHistorySize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.history = buffer.NewFIFO[Fire](n)
		}
	}
}

// NewRegistry creates an empty registry reading time from clk.
func NewRegistry(clk *clock.FrameClock, opts ...Option) *Registry {
	r := &Registry{
		clock:   clk,
		members: make(map[*Timer]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.history == nil {
		r.history = buffer.NewFIFO[Fire](DefaultHistorySize)
	}
	return r
}

// Now returns the registry clock's current tick.
func (r *Registry) Now() clock.Ticks {
	return r.clock.Now()
}

// Add registers t. If start is true the countdown (re)starts from Now().
// Adding a timer that is already registered does not duplicate it.
func (r *Registry) Add(t *Timer, start bool) *Timer {
	t.arm(r, r.clock.Now(), start)

	r.mu.Lock()
	_, exists := r.members[t]
	if !exists {
		r.members[t] = struct{}{}
		r.timers = append(r.timers, t)
	}
	r.mu.Unlock()

	if !exists {
		r.logger.Debug("timer added",
			slog.String("timer", t.Name()),
			slog.Duration("delay", t.Delay().Duration()),
			slog.Bool("repeating", t.repeating),
		)
	}
	return t
}

// After registers and starts a one-shot timer firing fn after d.
func (r *Registry) After(d time.Duration, fn func()) *Timer {
	return r.Add(NewDuration(d, fn, false), true)
}

// Every registers and starts a repeating timer firing fn every d.
func (r *Registry) Every(d time.Duration, fn func()) *Timer {
	return r.Add(NewDuration(d, fn, true), true)
}

// Remove unregisters t. Removing a timer that is not registered is a no-op.
// It is safe to call from within any timer's callback.
func (r *Registry) Remove(t *Timer) {
	r.mu.Lock()
	removed := r.removeLocked(t)
	r.mu.Unlock()

	if removed {
		r.logger.Debug("timer removed", slog.String("timer", t.Name()))
	}
}

// Contains reports whether t is registered.
func (r *Registry) Contains(t *Timer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[t]
	return ok
}

// Len returns the number of registered timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Timers returns the registered timers in registration order.
func (r *Registry) Timers() []*Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Timer, len(r.timers))
	copy(out, r.timers)
	return out
}

// History returns the most recent fire records, oldest first.
func (r *Registry) History() []Fire {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Items()
}

// Fired returns the total number of callbacks fired.
func (r *Registry) Fired() uint64 {
	return r.fired.Load()
}

// Tick fires every running timer whose deadline has been reached, in
// registration order, then removes every timer that is over.
//
// Callbacks run without any registry lock held. A timer removed by an
// earlier callback in the same pass does not fire. A panic raised by a
// callback propagates to the caller of Tick; the timers that fired before
// it, and the panicking timer, are still removed.
func (r *Registry) Tick() {
	now := r.clock.Now()

	r.mu.Lock()
	snapshot := slices.Clone(r.timers)
	r.mu.Unlock()

	defer r.removeOver()

	for _, t := range snapshot {
		if !r.Contains(t) || !t.trigger(now) {
			continue
		}

		r.fired.Add(1)
		r.mu.Lock()
		r.history.Enqueue(Fire{ID: t.id, Name: t.name, At: now, Repeating: t.repeating})
		r.mu.Unlock()

		t.onFire()
	}
}

// removeOver unregisters every one-shot timer that has fired and was not
// restarted since.
func (r *Registry) removeOver() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers = slices.DeleteFunc(r.timers, func(t *Timer) bool {
		if !t.Over() {
			return false
		}
		delete(r.members, t)
		return true
	})
}

// removeLocked removes t. Caller must hold r.mu.
func (r *Registry) removeLocked(t *Timer) bool {
	if _, ok := r.members[t]; !ok {
		return false
	}
	delete(r.members, t)
	if i := slices.Index(r.timers, t); i >= 0 {
		r.timers = slices.Delete(r.timers, i, i+1)
	}
	return true
}
