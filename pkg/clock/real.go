package clock

import "time"

// realSource implements Source using the standard time package.
type realSource struct{}

// Real returns a Source that uses the standard time package.
func Real() Source {
	return realSource{}
}

func (realSource) Now() time.Time {
	return time.Now()
}

func (realSource) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (realSource) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (realSource) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

// realTicker wraps time.Ticker.
type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}

func (r *realTicker) Reset(d time.Duration) {
	r.t.Reset(d)
}
