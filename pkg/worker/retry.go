package worker

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/NavarchProject/framekit/pkg/clock"
	"github.com/NavarchProject/framekit/pkg/deferred"
)

// RetryPolicy configures how RunRetry re-runs failing work.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts including the first.
	// Values below 1 mean a single attempt.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the wait between retries.
	MaxDelay time.Duration

	// Multiplier scales the delay after each retry.
	Multiplier float64

	// Jitter adds randomness to delays: 0.1 means +/- 10% of the delay.
	Jitter float64

	// Retryable reports whether err should trigger another attempt.
	// If nil, every error except a panic is retried.
	Retryable func(error) bool

	// Clock paces the waits between attempts (default: clock.Real()).
	Clock clock.Source
}

// DefaultRetryPolicy returns a policy suited to short I/O work.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// RunRetry is like Run but re-runs work according to policy while it
// fails. The Future carries the first success or the last error. The waits
// between attempts happen on the pool goroutine and hold its permit.
func RunRetry[T any](p *Pool, policy RetryPolicy, work func() (T, error)) *Future[T] {
	return Run(p, func() (T, error) {
		return retry(policy, work)
	})
}

// RunRetryOn is RunRetry with the final result delivered to then through q,
// as with RunOn.
func RunRetryOn[T any](p *Pool, q *deferred.Queue, policy RetryPolicy, work func() (T, error), then func(T, error)) *Future[T] {
	return RunOn(p, q, func() (T, error) {
		return retry(policy, work)
	}, then)
}

func retry[T any](policy RetryPolicy, work func() (T, error)) (T, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier == 0 {
		policy.Multiplier = 2.0
	}
	if policy.MaxDelay == 0 {
		policy.MaxDelay = 30 * time.Second
	}
	clk := policy.Clock
	if clk == nil {
		clk = clock.Real()
	}

	var (
		v     T
		err   error
		delay = policy.InitialDelay
	)
	for attempt := 1; ; attempt++ {
		v, err = call(work)
		if err == nil {
			return v, nil
		}

		var pe *PanicError
		if errors.As(err, &pe) {
			return v, err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return v, err
		}
		if attempt >= policy.MaxAttempts {
			return v, err
		}

		wait := delay
		if policy.Jitter > 0 {
			jitterRange := float64(delay) * policy.Jitter
			wait = delay + time.Duration(rand.Float64()*2*jitterRange-jitterRange)
		}
		if wait > 0 {
			<-clk.After(wait)
		}

		delay = time.Duration(math.Min(float64(delay)*policy.Multiplier, float64(policy.MaxDelay)))
	}
}
