// Package frame drives a frame-based runtime: it owns the frame and physics
// clocks, the timer registry, the deferred-call queue and the worker pool,
// and advances them in a fixed order each frame.
//
// Each Step advances the frame clock, fires due timers, then runs every
// deferred action requested before the drain began. The goroutine calling
// Step (or Run) is the frame goroutine; timer callbacks and deferred actions
// only ever run there.
package frame

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/NavarchProject/framekit/pkg/buffer"
	"github.com/NavarchProject/framekit/pkg/clock"
	"github.com/NavarchProject/framekit/pkg/config"
	"github.com/NavarchProject/framekit/pkg/deferred"
	"github.com/NavarchProject/framekit/pkg/timer"
	"github.com/NavarchProject/framekit/pkg/worker"
)

// Runtime is the scheduler context shared by everything running in frames.
type Runtime struct {
	spec   config.RuntimeSpec
	logger *slog.Logger
	source clock.Source

	clock   *clock.FrameClock
	physics *clock.FrameClock
	timers  *timer.Registry
	mailbox *deferred.Mailbox
	queue   *deferred.Queue
	pool    *worker.Pool

	mu     sync.Mutex
	deltas *buffer.Ring[float64]

	frames       atomic.Uint64
	physicsSteps atomic.Uint64
	overruns     atomic.Uint64
	clamped      atomic.Uint64

	overrunLog *rate.Limiter
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithSource sets the wall clock used by Run (default: clock.Real()).
func WithSource(src clock.Source) Option {
	return func(r *Runtime) {
		r.source = src
	}
}

// New creates a runtime from spec. Unset fields of spec take their
// defaults.
func New(spec config.RuntimeSpec, opts ...Option) *Runtime {
	spec.Defaults()

	r := &Runtime{
		spec:    spec,
		clock:   &clock.FrameClock{},
		physics: &clock.FrameClock{},
		mailbox: deferred.NewMailbox(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.source == nil {
		r.source = clock.Real()
	}

	r.timers = timer.NewRegistry(r.clock,
		timer.WithLogger(r.logger),
		timer.WithHistorySize(spec.TimerHistory),
	)
	r.queue = deferred.New(r.mailbox, deferred.WithLogger(r.logger))
	r.pool = worker.NewPool(worker.Options{
		Workers:     spec.Workers,
		SubmitRate:  spec.SubmitRate,
		SubmitBurst: spec.SubmitBurst,
		Logger:      r.logger,
	})

	history := spec.FrameHistory
	if history <= 0 {
		history = 1
	}
	r.deltas = buffer.NewRing[float64](history)
	r.overrunLog = rate.NewLimiter(rate.Every(spec.OverrunLogInterval.Duration()), 1)
	return r
}

// Clock returns the frame clock.
func (r *Runtime) Clock() *clock.FrameClock { return r.clock }

// PhysicsClock returns the physics clock. It advances only on StepPhysics.
func (r *Runtime) PhysicsClock() *clock.FrameClock { return r.physics }

// Timers returns the timer registry driven by Step.
func (r *Runtime) Timers() *timer.Registry { return r.timers }

// Queue returns the deferred-call queue drained by Step.
func (r *Runtime) Queue() *deferred.Queue { return r.queue }

// Pool returns the worker pool.
func (r *Runtime) Pool() *worker.Pool { return r.pool }

// Defer schedules fn to run on the frame goroutine. It is safe to call from
// any goroutine.
func (r *Runtime) Defer(fn func()) {
	r.queue.Enqueue(fn)
}

// Step advances one frame by delta seconds: the frame clock moves forward,
// due timers fire, and then one deferred action runs for each drain request
// outstanding at that point. When MaxFrameDelta is set, larger deltas are
// clamped to it. Negative, NaN or infinite deltas panic.
func (r *Runtime) Step(delta float64) {
	if limit := r.spec.MaxFrameDelta.Duration().Seconds(); limit > 0 && delta > limit {
		r.clamped.Add(1)
		r.logger.Debug("frame delta clamped",
			slog.Float64("delta", delta),
			slog.Float64("max", limit),
		)
		delta = limit
	}

	r.clock.Advance(delta)
	r.timers.Tick()
	r.mailbox.Serve(r.queue)

	r.mu.Lock()
	r.deltas.Push(delta)
	r.mu.Unlock()
	r.frames.Add(1)
}

// StepPhysics advances the physics clock by delta seconds.
func (r *Runtime) StepPhysics(delta float64) {
	r.physics.Advance(delta)
	r.physicsSteps.Add(1)
}

// Drain runs the deferred actions requested so far without advancing a
// frame and returns how many ran. It must be called on the frame
// goroutine.
func (r *Runtime) Drain() int {
	return r.mailbox.Serve(r.queue)
}

// Run drives frames from the wall clock at the configured frame rate until
// ctx is done. Between frames it drains deferred actions as soon as they
// are requested. Run returns nil when ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	interval := r.spec.FrameInterval()
	physicsInterval := r.spec.PhysicsInterval()

	frames := r.source.NewTicker(interval)
	defer frames.Stop()
	physics := r.source.NewTicker(physicsInterval)
	defer physics.Stop()

	r.logger.Info("frame loop started",
		slog.Float64("frame_rate", r.spec.FrameRate),
		slog.Float64("physics_rate", r.spec.PhysicsRate),
		slog.Int("workers", r.pool.Stats().Workers),
	)

	lastFrame := r.source.Now()
	lastPhysics := lastFrame
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("frame loop stopped", slog.Uint64("frames", r.frames.Load()))
			return nil

		case now := <-frames.C():
			delta := now.Sub(lastFrame)
			lastFrame = now
			if delta < 0 {
				delta = 0
			}

			started := r.source.Now()
			r.Step(delta.Seconds())
			if took := r.source.Since(started); took > interval {
				r.overrun(took, interval)
			}

		case now := <-physics.C():
			delta := now.Sub(lastPhysics)
			lastPhysics = now
			if delta < 0 {
				delta = 0
			}
			r.StepPhysics(delta.Seconds())

		case <-r.mailbox.Wake():
			r.Drain()
		}
	}
}

func (r *Runtime) overrun(took, budget time.Duration) {
	n := r.overruns.Add(1)
	if r.overrunLog.Allow() {
		r.logger.Warn("frame overran its budget",
			slog.Duration("took", took),
			slog.Duration("budget", budget),
			slog.Uint64("overruns", n),
		)
	}
}

// Close stops accepting background work, waits for submitted work to
// finish and runs the continuations it queued. Call it on the frame
// goroutine after Run has returned.
func (r *Runtime) Close() {
	r.pool.Close()
	for r.mailbox.Pending() > 0 {
		r.Drain()
	}
	r.logger.Debug("runtime closed", slog.Uint64("frames", r.frames.Load()))
}

// Frames returns the number of frames stepped.
func (r *Runtime) Frames() uint64 {
	return r.frames.Load()
}

// AverageFrameTime returns the mean delta of the most recent frames, up to
// the configured frame history.
func (r *Runtime) AverageFrameTime() time.Duration {
	n := int(min(r.frames.Load(), uint64(r.deltas.Len())))
	if n == 0 {
		return 0
	}

	r.mu.Lock()
	var sum float64
	for i := 1; i <= n; i++ {
		sum += r.deltas.GetMod(-i)
	}
	r.mu.Unlock()

	return time.Duration(sum / float64(n) * float64(time.Second))
}

// Offload runs work on rt's worker pool and then runs then on the frame
// goroutine with the result.
func Offload[T any](rt *Runtime, work func() (T, error), then func(T, error)) *worker.Future[T] {
	return worker.RunOn(rt.pool, rt.queue, work, then)
}
