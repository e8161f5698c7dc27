package frame

import (
	"time"

	"github.com/NavarchProject/framekit/pkg/clock"
	"github.com/NavarchProject/framekit/pkg/worker"
)

// Stats is a point-in-time view of a Runtime.
type Stats struct {
	Frames           uint64
	PhysicsSteps     uint64
	Overruns         uint64
	ClampedFrames    uint64
	Now              clock.Ticks
	PhysicsNow       clock.Ticks
	AverageFrameTime time.Duration

	TimersRegistered int
	TimersFired      uint64

	DeferredPending  int
	DeferredEnqueued uint64
	DeferredDrained  uint64

	Worker worker.Stats
}

// Stats returns current counters for r.
func (r *Runtime) Stats() Stats {
	return Stats{
		Frames:           r.frames.Load(),
		PhysicsSteps:     r.physicsSteps.Load(),
		Overruns:         r.overruns.Load(),
		ClampedFrames:    r.clamped.Load(),
		Now:              r.clock.Now(),
		PhysicsNow:       r.physics.Now(),
		AverageFrameTime: r.AverageFrameTime(),
		TimersRegistered: r.timers.Len(),
		TimersFired:      r.timers.Fired(),
		DeferredPending:  r.queue.Len(),
		DeferredEnqueued: r.queue.Enqueued(),
		DeferredDrained:  r.queue.Drained(),
		Worker:           r.pool.Stats(),
	}
}
