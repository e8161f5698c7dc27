// Package timer schedules one-shot and repeating callbacks against a
// clock.FrameClock.
//
// Timers are owned by a Registry once added. The Registry is advanced once
// per frame with Tick, which fires every due timer on the calling
// goroutine. Callbacks may add, remove, start or stop any timer, including
// the one currently firing.
package timer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NavarchProject/framekit/pkg/clock"
)

var (
	// ErrNilCallback is the panic value raised when a timer is created
	// without a callback.
	ErrNilCallback = errors.New("timer: nil callback")

	// ErrUnregistered is the panic value raised when Start is called on a
	// timer that has never been added to a Registry.
	ErrUnregistered = errors.New("timer: timer was never added to a registry")
)

// Timer fires a callback once a delay has elapsed on the registry's clock.
type Timer struct {
	id        uuid.UUID
	name      string
	repeating bool
	onFire    func()

	mu       sync.Mutex
	delay    clock.Ticks
	start    clock.Ticks
	running  bool
	over     bool
	registry *Registry
}

// New creates a stopped timer that fires fn after delay ticks. A repeating
// timer fires again each time delay ticks have elapsed since its last fire.
// It panics with ErrNilCallback if fn is nil.
func New(delay clock.Ticks, fn func(), repeating bool) *Timer {
	if fn == nil {
		panic(ErrNilCallback)
	}
	return &Timer{
		id:        uuid.New(),
		delay:     delay,
		onFire:    fn,
		repeating: repeating,
	}
}

// NewSeconds is like New with the delay given in seconds.
func NewSeconds(seconds float64, fn func(), repeating bool) *Timer {
	return New(clock.FromSeconds(seconds), fn, repeating)
}

// NewDuration is like New with the delay given as a duration.
func NewDuration(d time.Duration, fn func(), repeating bool) *Timer {
	return New(clock.FromDuration(d), fn, repeating)
}

// Named sets a human-readable name used in logs and history and returns t.
func (t *Timer) Named(name string) *Timer {
	t.name = name
	return t
}

// ID returns the timer's unique identifier.
func (t *Timer) ID() uuid.UUID { return t.id }

// Name returns the name set with Named, or the ID if none was set.
func (t *Timer) Name() string {
	if t.name == "" {
		return t.id.String()
	}
	return t.name
}

// Repeating reports whether the timer re-arms after firing.
func (t *Timer) Repeating() bool { return t.repeating }

// Delay returns the firing delay.
func (t *Timer) Delay() clock.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// SetDelay changes the firing delay. It takes effect on the next Tick and
// is measured from the current start tick.
func (t *Timer) SetDelay(d clock.Ticks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// StartTick returns the tick the current countdown began at.
func (t *Timer) StartTick() clock.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start
}

// Deadline returns the tick at or after which the timer is due.
func (t *Timer) Deadline() clock.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start + t.delay
}

// Running reports whether the timer is counting down.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Over reports whether a one-shot timer has fired.
func (t *Timer) Over() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.over
}

// Start (re)starts the countdown from the registry clock's current tick and
// re-registers the timer if it was removed. It panics with ErrUnregistered
// if the timer was never added to a Registry.
func (t *Timer) Start() {
	t.mu.Lock()
	r := t.registry
	t.mu.Unlock()
	if r == nil {
		panic(ErrUnregistered)
	}
	r.Add(t, true)
}

// Stop halts the countdown. The timer stays registered and inert until it
// is removed or restarted.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *Timer) arm(r *Registry, now clock.Ticks, start bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry = r
	if start {
		t.running = true
		t.over = false
		t.start = now
	}
}

// trigger updates the timer's state if it is due at now and reports
// whether the callback should run.
func (t *Timer) trigger(now clock.Ticks) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.start+t.delay > now {
		return false
	}
	if t.repeating {
		t.start = now
	} else {
		t.over = true
		t.running = false
	}
	return true
}
