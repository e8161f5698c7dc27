package config

import "time"

const (
	APIVersion = "framekit.io/v1alpha1"

	KindRuntime  = "Runtime"
	KindWorkload = "Workload"
)

// TypeMeta describes the API version and kind of a resource.
type TypeMeta struct {
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`
	Kind       string `yaml:"kind" json:"kind"`
}

// ObjectMeta contains metadata that all resources have.
type ObjectMeta struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Runtime configures the frame runtime.
type Runtime struct {
	TypeMeta `yaml:",inline" json:",inline"`
	Metadata ObjectMeta  `yaml:"metadata" json:"metadata"`
	Spec     RuntimeSpec `yaml:"spec" json:"spec"`
}

// RuntimeSpec defines how frames are driven and how much history is kept.
type RuntimeSpec struct {
	// Frame pacing
	FrameRate     float64  `yaml:"frameRate,omitempty" json:"frameRate,omitempty"`         // Frames per second (default: 60)
	PhysicsRate   float64  `yaml:"physicsRate,omitempty" json:"physicsRate,omitempty"`     // Physics steps per second (default: 60)
	MaxFrameDelta Duration `yaml:"maxFrameDelta,omitempty" json:"maxFrameDelta,omitempty"` // Clamp for a single frame's delta (0 = no clamp)

	// Background work
	Workers     int     `yaml:"workers,omitempty" json:"workers,omitempty"`
	SubmitRate  float64 `yaml:"submitRate,omitempty" json:"submitRate,omitempty"`
	SubmitBurst int     `yaml:"submitBurst,omitempty" json:"submitBurst,omitempty"`

	// History
	TimerHistory int `yaml:"timerHistory,omitempty" json:"timerHistory,omitempty"`
	FrameHistory int `yaml:"frameHistory,omitempty" json:"frameHistory,omitempty"`

	// Observability
	LogLevel           string   `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	OverrunLogInterval Duration `yaml:"overrunLogInterval,omitempty" json:"overrunLogInterval,omitempty"`
	MetricsAddr        string   `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`
}

// FrameInterval returns the wall-clock time between frames.
func (s RuntimeSpec) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.FrameRate)
}

// PhysicsInterval returns the wall-clock time between physics steps.
func (s RuntimeSpec) PhysicsInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.PhysicsRate)
}

// Workload describes a set of timers the CLI schedules against a runtime.
type Workload struct {
	TypeMeta `yaml:",inline" json:",inline"`
	Metadata ObjectMeta   `yaml:"metadata" json:"metadata"`
	Spec     WorkloadSpec `yaml:"spec" json:"spec"`
}

// WorkloadSpec lists timers and the phases they cycle through.
type WorkloadSpec struct {
	Timers []TimerSpec `yaml:"timers" json:"timers"`
	Phases []string    `yaml:"phases,omitempty" json:"phases,omitempty"`
}

// TimerSpec configures one scheduled timer.
type TimerSpec struct {
	Name      string   `yaml:"name" json:"name"`
	Delay     Duration `yaml:"delay" json:"delay"`
	Repeating bool     `yaml:"repeating,omitempty" json:"repeating,omitempty"`

	// Offload, when set, runs simulated blocking work of this length on the
	// worker pool each time the timer fires.
	Offload Duration `yaml:"offload,omitempty" json:"offload,omitempty"`

	// FailEvery makes every Nth offloaded attempt return an error.
	FailEvery int `yaml:"failEvery,omitempty" json:"failEvery,omitempty"`

	// Retries is how many extra attempts a failed offload gets.
	Retries int `yaml:"retries,omitempty" json:"retries,omitempty"`
}

// Duration is a time.Duration that reads and writes as a string ("16ms").
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
