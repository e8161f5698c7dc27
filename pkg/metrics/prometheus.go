// Package metrics exports runtime statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/NavarchProject/framekit/pkg/frame"
)

// StatsSource is anything that can report a frame.Stats snapshot.
type StatsSource interface {
	Stats() frame.Stats
}

// Collector provides Prometheus metrics for a frame runtime.
type Collector struct {
	source StatsSource

	// Frame metrics
	frames       *prometheus.Desc
	physicsSteps *prometheus.Desc
	overruns     *prometheus.Desc
	clamped      *prometheus.Desc
	clockSeconds *prometheus.GaugeVec
	frameTime    prometheus.Gauge

	// Timer metrics
	timersFired      *prometheus.Desc
	timersRegistered prometheus.Gauge

	// Deferred queue metrics
	deferredPending  prometheus.Gauge
	deferredEnqueued *prometheus.Desc
	deferredDrained  *prometheus.Desc

	// Worker metrics
	workerInFlight  prometheus.Gauge
	workerWaiting   prometheus.Gauge
	workerCompleted *prometheus.Desc
	workerFailed    *prometheus.Desc

	// Recorded by callers
	offloadResults *prometheus.CounterVec
}

// NewCollector creates a Collector reading from source on every scrape.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		frames: prometheus.NewDesc(
			"framekit_frames_total",
			"Total number of frames stepped",
			nil, nil,
		),
		physicsSteps: prometheus.NewDesc(
			"framekit_physics_steps_total",
			"Total number of physics steps",
			nil, nil,
		),
		overruns: prometheus.NewDesc(
			"framekit_frame_overruns_total",
			"Frames that took longer than the frame interval",
			nil, nil,
		),
		clamped: prometheus.NewDesc(
			"framekit_frames_clamped_total",
			"Frames whose delta was clamped to the maximum",
			nil, nil,
		),
		clockSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framekit_clock_seconds",
				Help: "Current reading of each runtime clock",
			},
			[]string{"clock"},
		),
		frameTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_frame_time_seconds",
			Help: "Average delta of recent frames",
		}),
		timersFired: prometheus.NewDesc(
			"framekit_timers_fired_total",
			"Total number of timer callbacks fired",
			nil, nil,
		),
		timersRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_timers_registered",
			Help: "Number of timers currently registered",
		}),
		deferredPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_deferred_pending",
			Help: "Deferred actions waiting for the frame goroutine",
		}),
		deferredEnqueued: prometheus.NewDesc(
			"framekit_deferred_enqueued_total",
			"Total number of deferred actions enqueued",
			nil, nil,
		),
		deferredDrained: prometheus.NewDesc(
			"framekit_deferred_drained_total",
			"Total number of deferred actions run",
			nil, nil,
		),
		workerInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_worker_in_flight",
			Help: "Background jobs currently running",
		}),
		workerWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "framekit_worker_waiting",
			Help: "Background jobs waiting for a worker",
		}),
		workerCompleted: prometheus.NewDesc(
			"framekit_worker_completed_total",
			"Total number of background jobs finished",
			nil, nil,
		),
		workerFailed: prometheus.NewDesc(
			"framekit_worker_failed_total",
			"Total number of background jobs that returned an error or panicked",
			nil, nil,
		),
		offloadResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framekit_offload_results_total",
				Help: "Offloaded job results by job and outcome",
			},
			[]string{"job", "result"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.physicsSteps
	ch <- c.overruns
	ch <- c.clamped
	c.clockSeconds.Describe(ch)
	c.frameTime.Describe(ch)
	ch <- c.timersFired
	c.timersRegistered.Describe(ch)
	c.deferredPending.Describe(ch)
	ch <- c.deferredEnqueued
	ch <- c.deferredDrained
	c.workerInFlight.Describe(ch)
	c.workerWaiting.Describe(ch)
	ch <- c.workerCompleted
	ch <- c.workerFailed
	c.offloadResults.Describe(ch)
}

// Collect implements prometheus.Collector and reads a fresh snapshot from
// the source.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.frames, s.Frames)
	counter(c.physicsSteps, s.PhysicsSteps)
	counter(c.overruns, s.Overruns)
	counter(c.clamped, s.ClampedFrames)
	counter(c.timersFired, s.TimersFired)
	counter(c.deferredEnqueued, s.DeferredEnqueued)
	counter(c.deferredDrained, s.DeferredDrained)
	counter(c.workerCompleted, s.Worker.Completed)
	counter(c.workerFailed, s.Worker.Failed)

	c.clockSeconds.WithLabelValues("frame").Set(s.Now.Seconds())
	c.clockSeconds.WithLabelValues("physics").Set(s.PhysicsNow.Seconds())
	c.frameTime.Set(s.AverageFrameTime.Seconds())
	c.timersRegistered.Set(float64(s.TimersRegistered))
	c.deferredPending.Set(float64(s.DeferredPending))
	c.workerInFlight.Set(float64(s.Worker.InFlight))
	c.workerWaiting.Set(float64(s.Worker.Waiting))

	c.clockSeconds.Collect(ch)
	c.frameTime.Collect(ch)
	c.timersRegistered.Collect(ch)
	c.deferredPending.Collect(ch)
	c.workerInFlight.Collect(ch)
	c.workerWaiting.Collect(ch)
	c.offloadResults.Collect(ch)
}

// RecordOffload increments the result counter for an offloaded job.
func (c *Collector) RecordOffload(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.offloadResults.WithLabelValues(job, result).Inc()
}
