package clock

import "time"

// Source provides wall time operations that can be real or simulated.
type Source interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a new Ticker containing a channel that will send
	// the current time after each tick.
	NewTicker(d time.Duration) Ticker
}

// Ticker wraps time.Ticker functionality.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time

	// Stop turns off the ticker. After Stop, no more ticks will be sent.
	Stop()

	// Reset stops the ticker and resets it to tick with the new duration.
	Reset(d time.Duration)
}
