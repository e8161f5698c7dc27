// Package clock provides the frame runtime's notions of time.
//
// FrameClock is a monotonic tick counter advanced once per frame by the
// host. Ticks are integers so that summing millions of small frame deltas
// does not accumulate floating point drift.
//
// Source abstracts wall time for whatever drives the frames. In production
// use Real(); in tests use NewFakeSource() for deterministic control.
package clock

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// ErrNegativeDelta is the panic value (wrapped) raised when a clock is asked
// to move backwards or by a non-finite amount.
var ErrNegativeDelta = errors.New("clock: delta must be finite and non-negative")

// Ticks counts indivisible clock units. One tick is one nanosecond.
type Ticks uint64

// TicksPerSecond is the fixed tick rate.
const TicksPerSecond Ticks = 1_000_000_000

// FromSeconds converts seconds to ticks, rounding to the nearest tick.
// It panics if s is negative, NaN or infinite.
func FromSeconds(s float64) Ticks {
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		panic(fmt.Errorf("%w: %v", ErrNegativeDelta, s))
	}
	return Ticks(math.Round(s * float64(TicksPerSecond)))
}

// FromDuration converts a duration to ticks. It panics if d is negative.
func FromDuration(d time.Duration) Ticks {
	if d < 0 {
		panic(fmt.Errorf("%w: %v", ErrNegativeDelta, d))
	}
	return Ticks(d.Nanoseconds())
}

// Seconds returns t as floating point seconds. The result is for display
// only; it does not round-trip exactly.
func (t Ticks) Seconds() float64 {
	return float64(t) / float64(TicksPerSecond)
}

// Duration returns t as a time.Duration.
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * time.Nanosecond
}

func (t Ticks) String() string {
	return t.Duration().String()
}

// FrameClock is a monotonically increasing tick counter. The zero value is
// ready to use and reads zero.
//
// Only the frame-driving goroutine should advance a FrameClock, but Now
// may be read from any goroutine.
type FrameClock struct {
	ticks atomic.Uint64
}

// Advance moves the clock forward by deltaSeconds and returns the new tick
// count. It panics if deltaSeconds is negative, NaN or infinite.
func (c *FrameClock) Advance(deltaSeconds float64) Ticks {
	return Ticks(c.ticks.Add(uint64(FromSeconds(deltaSeconds))))
}

// AdvanceDuration moves the clock forward by d and returns the new tick
// count. It panics if d is negative.
func (c *FrameClock) AdvanceDuration(d time.Duration) Ticks {
	return Ticks(c.ticks.Add(uint64(FromDuration(d))))
}

// Now returns the current tick count.
func (c *FrameClock) Now() Ticks {
	return Ticks(c.ticks.Load())
}

// Seconds returns the elapsed time in seconds.
func (c *FrameClock) Seconds() float64 {
	return c.Now().Seconds()
}

// Millis returns the elapsed time in milliseconds.
func (c *FrameClock) Millis() float64 {
	return float64(c.Now()) / float64(TicksPerSecond/1000)
}

// Micros returns the elapsed time in microseconds.
func (c *FrameClock) Micros() float64 {
	return float64(c.Now()) / float64(TicksPerSecond/1_000_000)
}
