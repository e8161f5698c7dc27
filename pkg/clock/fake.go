package clock

import (
	"container/heap"
	"slices"
	"sync"
	"time"
)

// FakeSource is a deterministic wall clock for tests. Time only moves when
// Advance or AdvanceTo is called.
//
// Waiters due at the same instant fire in the order they were scheduled.
type FakeSource struct {
	mu      sync.Mutex
	now     time.Time
	waiters waitHeap
	nextID  uint64
}

// NewFakeSource creates a FakeSource starting at the given time.
func NewFakeSource(start time.Time) *FakeSource {
	return &FakeSource{now: start}
}

// Now returns the current fake time.
func (c *FakeSource) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the duration since t.
func (c *FakeSource) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// After returns a channel that receives when d has elapsed.
func (c *FakeSource) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.schedule(c.now.Add(d), ch, nil)
	return ch
}

// NewTicker returns a new Ticker that ticks every d.
func (c *FakeSource) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		source:   c,
		interval: d,
		ch:       make(chan time.Time, 1),
	}
	ft.nextTick = c.now.Add(d)
	ft.id = c.schedule(ft.nextTick, nil, ft.tick)
	return ft
}

// Advance moves the clock forward by d, firing any waiters that expire.
func (c *FakeSource) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// AdvanceTo moves the clock to t, firing any waiters that expire. Moving
// backwards is ignored.
//
// Waiters are fired one at a time with the lock released, so a ticker
// rescheduling itself inside the advanced window fires again before
// AdvanceTo returns.
func (c *FakeSource) AdvanceTo(t time.Time) {
	for {
		c.mu.Lock()
		if t.Before(c.now) {
			c.mu.Unlock()
			return
		}
		if c.waiters.Len() == 0 || c.waiters[0].deadline.After(t) {
			c.now = t
			c.mu.Unlock()
			return
		}
		w := heap.Pop(&c.waiters).(*waiter)
		c.now = w.deadline
		c.mu.Unlock()

		if w.ch != nil {
			select {
			case w.ch <- w.deadline:
			default:
			}
		}
		if w.fn != nil {
			w.fn()
		}
	}
}

// PendingWaiters returns the number of scheduled waiters and tickers.
func (c *FakeSource) PendingWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len()
}

// schedule queues a wake-up at deadline and returns its id. c.mu must be held.
func (c *FakeSource) schedule(deadline time.Time, ch chan time.Time, fn func()) uint64 {
	c.nextID++
	heap.Push(&c.waiters, &waiter{id: c.nextID, deadline: deadline, ch: ch, fn: fn})
	return c.nextID
}

// cancel drops the wake-up with the given id, if still queued. c.mu must be
// held.
func (c *FakeSource) cancel(id uint64) bool {
	i := slices.IndexFunc(c.waiters, func(w *waiter) bool { return w.id == id })
	if i < 0 {
		return false
	}
	heap.Remove(&c.waiters, i)
	return true
}

// A waiter is a pending wake-up: a channel send, a callback, or both.
type waiter struct {
	id       uint64
	deadline time.Time
	ch       chan time.Time
	fn       func()
}

// waitHeap orders waiters by deadline; equal deadlines keep schedule order.
type waitHeap []*waiter

func (h waitHeap) Len() int      { return len(h) }
func (h waitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h waitHeap) Less(i, j int) bool {
	if d := h[i].deadline.Compare(h[j].deadline); d != 0 {
		return d < 0
	}
	return h[i].id < h[j].id
}

func (h *waitHeap) Push(x any) { *h = append(*h, x.(*waiter)) }

func (h *waitHeap) Pop() any {
	n := len(*h) - 1
	w := (*h)[n]
	(*h)[n] = nil
	*h = (*h)[:n]
	return w
}

// fakeTicker re-schedules itself on the source after every tick.
type fakeTicker struct {
	source   *FakeSource
	interval time.Duration
	nextTick time.Time
	ch       chan time.Time
	id       uint64
	mu       sync.Mutex
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true

	t.source.mu.Lock()
	t.source.cancel(t.id)
	t.source.mu.Unlock()
}

func (t *fakeTicker) Reset(d time.Duration) {
	if d <= 0 {
		panic("non-positive interval for Reset")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.source.mu.Lock()
	t.source.cancel(t.id)
	t.interval = d
	t.nextTick = t.source.now.Add(d)
	t.id = t.source.schedule(t.nextTick, nil, t.tick)
	t.stopped = false
	t.source.mu.Unlock()
}

func (t *fakeTicker) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	// Non-blocking to match time.Ticker, which drops ticks for slow readers.
	select {
	case t.ch <- t.nextTick:
	default:
	}

	t.source.mu.Lock()
	t.nextTick = t.nextTick.Add(t.interval)
	t.id = t.source.schedule(t.nextTick, nil, t.tick)
	t.source.mu.Unlock()
}
