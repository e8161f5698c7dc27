package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParse_Runtime(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: game
spec:
  frameRate: 120
  maxFrameDelta: 100ms
  workers: 4
  submitRate: 50
  timerHistory: 16
  logLevel: debug
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Runtime == nil {
		t.Fatal("expected Runtime")
	}
	spec := cfg.Runtime.Spec
	if spec.FrameRate != 120 {
		t.Errorf("expected frameRate 120, got %v", spec.FrameRate)
	}
	if spec.MaxFrameDelta != Duration(100*time.Millisecond) {
		t.Errorf("expected 100ms, got %v", spec.MaxFrameDelta.Duration())
	}
	if spec.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", spec.Workers)
	}
	if spec.TimerHistory != 16 {
		t.Errorf("expected timerHistory 16, got %d", spec.TimerHistory)
	}
}

func TestParse_MultiDocument(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: game
spec:
  frameRate: 30
---
apiVersion: framekit.io/v1alpha1
kind: Workload
metadata:
  name: demo
spec:
  phases: [idle, loading, playing]
  timers:
    - name: heartbeat
      delay: 500ms
      repeating: true
    - name: save
      delay: 2s
      offload: 20ms
      failEvery: 3
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Runtime == nil || cfg.Runtime.Spec.FrameRate != 30 {
		t.Fatalf("unexpected Runtime: %+v", cfg.Runtime)
	}
	if len(cfg.Workloads) != 1 {
		t.Fatalf("expected 1 workload, got %d", len(cfg.Workloads))
	}
	wl := cfg.Workloads[0]
	if len(wl.Spec.Phases) != 3 {
		t.Errorf("expected 3 phases, got %v", wl.Spec.Phases)
	}
	if len(wl.Spec.Timers) != 2 {
		t.Fatalf("expected 2 timers, got %d", len(wl.Spec.Timers))
	}
	hb := wl.Spec.Timers[0]
	if hb.Name != "heartbeat" || !hb.Repeating || hb.Delay != Duration(500*time.Millisecond) {
		t.Errorf("unexpected heartbeat timer: %+v", hb)
	}
	save := wl.Spec.Timers[1]
	if save.Offload != Duration(20*time.Millisecond) || save.FailEvery != 3 {
		t.Errorf("unexpected save timer: %+v", save)
	}
}

func TestParse_UnsupportedAPIVersion(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v2
kind: Runtime
metadata:
  name: test
spec: {}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Error("expected error for unsupported apiVersion")
	}
}

func TestParse_UnknownKind(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
kind: Scene
metadata:
  name: test
spec: {}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParse_MissingKind(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
metadata:
  name: test
spec: {}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Error("expected error for missing kind")
	}
}

func TestParse_MultipleRuntimes(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: one
spec: {}
---
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: two
spec: {}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Error("expected error for multiple Runtime resources")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: test
spec:
  maxFrameDelta: soon
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime != nil || len(cfg.Workloads) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Defaults()

	if cfg.Runtime == nil {
		t.Fatal("Defaults did not create a Runtime")
	}
	spec := cfg.Runtime.Spec
	if spec.FrameRate != 60 || spec.PhysicsRate != 60 {
		t.Errorf("expected 60/60 rates, got %v/%v", spec.FrameRate, spec.PhysicsRate)
	}
	if spec.MaxFrameDelta != 0 {
		t.Errorf("expected maxFrameDelta to stay unset, got %v", spec.MaxFrameDelta.Duration())
	}
	if spec.TimerHistory != 64 || spec.FrameHistory != 120 {
		t.Errorf("unexpected history sizes %d/%d", spec.TimerHistory, spec.FrameHistory)
	}
	if spec.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", spec.LogLevel)
	}
	if got := spec.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() = %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config failed validation: %v", err)
	}
}

func TestDefaults_KeepsExplicitValues(t *testing.T) {
	spec := RuntimeSpec{FrameRate: 144, TimerHistory: 8}
	spec.Defaults()

	if spec.FrameRate != 144 || spec.TimerHistory != 8 {
		t.Errorf("Defaults overwrote explicit values: %+v", spec)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Workloads = []*Workload{{
			Metadata: ObjectMeta{Name: "demo"},
			Spec: WorkloadSpec{Timers: []TimerSpec{
				{Name: "tick", Delay: Duration(time.Second)},
			}},
		}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero frame rate", func(c *Config) { c.Runtime.Spec.FrameRate = 0 }, true},
		{"negative physics rate", func(c *Config) { c.Runtime.Spec.PhysicsRate = -1 }, true},
		{"negative workers", func(c *Config) { c.Runtime.Spec.Workers = -2 }, true},
		{"negative submit rate", func(c *Config) { c.Runtime.Spec.SubmitRate = -1 }, true},
		{"bad log level", func(c *Config) { c.Runtime.Spec.LogLevel = "chatty" }, true},
		{"workload without name", func(c *Config) { c.Workloads[0].Metadata.Name = "" }, true},
		{"duplicate workload", func(c *Config) { c.Workloads = append(c.Workloads, c.Workloads[0]) }, true},
		{"no timers", func(c *Config) { c.Workloads[0].Spec.Timers = nil }, true},
		{"timer without name", func(c *Config) { c.Workloads[0].Spec.Timers[0].Name = "" }, true},
		{"zero delay", func(c *Config) { c.Workloads[0].Spec.Timers[0].Delay = 0 }, true},
		{"duplicate timer", func(c *Config) {
			c.Workloads[0].Spec.Timers = append(c.Workloads[0].Spec.Timers, c.Workloads[0].Spec.Timers[0])
		}, true},
		{"negative failEvery", func(c *Config) { c.Workloads[0].Spec.Timers[0].FailEvery = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framekit.yaml")
	content := `
apiVersion: framekit.io/v1alpha1
kind: Runtime
metadata:
  name: from-file
spec:
  frameRate: 24
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime.Metadata.Name != "from-file" || cfg.Runtime.Spec.FrameRate != 24 {
		t.Errorf("unexpected Runtime: %+v", cfg.Runtime)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	in := TimerSpec{Name: "t", Delay: Duration(1500 * time.Millisecond)}
	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out TimerSpec
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Delay != in.Delay {
		t.Errorf("round trip = %v, want %v", out.Delay.Duration(), in.Delay.Duration())
	}
}
