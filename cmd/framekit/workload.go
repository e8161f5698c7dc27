package main

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/NavarchProject/framekit/pkg/config"
	"github.com/NavarchProject/framekit/pkg/cycle"
	"github.com/NavarchProject/framekit/pkg/frame"
	"github.com/NavarchProject/framekit/pkg/metrics"
	"github.com/NavarchProject/framekit/pkg/timer"
	"github.com/NavarchProject/framekit/pkg/worker"
)

var errSimulatedFailure = errors.New("simulated offload failure")

// timerState tracks one scheduled timer. Every field except attempts is
// only touched on the frame goroutine.
type timerState struct {
	spec     config.TimerSpec
	workload string
	timer    *timer.Timer

	fired     int
	offloaded int
	succeeded int
	failed    int
	phase     string

	attempts atomic.Int64
}

// workload schedules the timers of one or more Workload resources on a
// runtime and records what happens to them.
type workload struct {
	rt        *frame.Runtime
	collector *metrics.Collector
	logger    *slog.Logger

	phases []string
	timers []*timerState
}

func newWorkload(rt *frame.Runtime, specs []*config.Workload, collector *metrics.Collector, logger *slog.Logger) *workload {
	w := &workload{
		rt:        rt,
		collector: collector,
		logger:    logger,
	}
	for _, wl := range specs {
		w.phases = append(w.phases, wl.Spec.Phases...)
		for _, ts := range wl.Spec.Timers {
			w.schedule(wl.Metadata.Name, ts)
		}
	}
	return w
}

func (w *workload) schedule(workload string, spec config.TimerSpec) {
	st := &timerState{spec: spec, workload: workload}
	t := timer.NewDuration(spec.Delay.Duration(), func() { w.fire(st) }, spec.Repeating)
	st.timer = w.rt.Timers().Add(t.Named(spec.Name), true)
	w.timers = append(w.timers, st)
}

func (w *workload) fire(st *timerState) {
	st.fired++
	if len(w.phases) > 0 {
		next := cycle.Next(w.phases, st.phase)
		if next != st.phase {
			w.logger.Debug("phase changed",
				slog.String("timer", st.spec.Name),
				slog.String("from", st.phase),
				slog.String("to", next),
			)
		}
		st.phase = next
	}

	w.logger.Debug("timer fired",
		slog.String("timer", st.spec.Name),
		slog.Int("count", st.fired),
		slog.Float64("at_ms", w.rt.Clock().Millis()),
	)

	if st.spec.Offload > 0 {
		w.offload(st)
	}
}

func (w *workload) offload(st *timerState) {
	st.offloaded++

	policy := worker.DefaultRetryPolicy()
	policy.MaxAttempts = st.spec.Retries + 1
	work := func() (time.Duration, error) {
		n := st.attempts.Add(1)
		time.Sleep(st.spec.Offload.Duration())
		if every := int64(st.spec.FailEvery); every > 0 && n%every == 0 {
			return 0, errSimulatedFailure
		}
		return st.spec.Offload.Duration(), nil
	}

	worker.RunRetryOn(w.rt.Pool(), w.rt.Queue(), policy, work, func(took time.Duration, err error) {
		if w.collector != nil {
			w.collector.RecordOffload(st.spec.Name, err)
		}
		if err != nil {
			st.failed++
			w.logger.Warn("offload failed",
				slog.String("timer", st.spec.Name),
				slog.String("error", err.Error()),
			)
			return
		}
		st.succeeded++
		w.logger.Debug("offload finished",
			slog.String("timer", st.spec.Name),
			slog.Duration("took", took),
		)
	})
}

// defaultWorkload is used when the configuration has no Workload.
func defaultWorkload() *config.Workload {
	return &config.Workload{
		TypeMeta: config.TypeMeta{APIVersion: config.APIVersion, Kind: config.KindWorkload},
		Metadata: config.ObjectMeta{Name: "demo"},
		Spec: config.WorkloadSpec{
			Phases: []string{"idle", "loading", "playing", "paused"},
			Timers: []config.TimerSpec{
				{Name: "heartbeat", Delay: config.Duration(250 * time.Millisecond), Repeating: true},
				{Name: "intro", Delay: config.Duration(500 * time.Millisecond)},
				{
					Name:      "autosave",
					Delay:     config.Duration(time.Second),
					Repeating: true,
					Offload:   config.Duration(40 * time.Millisecond),
					FailEvery: 3,
					Retries:   1,
				},
			},
		},
	}
}
