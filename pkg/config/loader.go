package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config holds all loaded configuration resources.
type Config struct {
	Runtime   *Runtime
	Workloads []*Workload
}

// Load reads configuration from a file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
// Supports multi-document YAML (separated by ---).
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var raw map[string]any
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML document: %w", err)
		}

		if raw == nil {
			continue
		}

		kind, _ := raw["kind"].(string)
		apiVersion, _ := raw["apiVersion"].(string)

		if apiVersion != "" && apiVersion != APIVersion {
			return nil, fmt.Errorf("unsupported apiVersion: %s (expected %s)", apiVersion, APIVersion)
		}

		docBytes, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to re-marshal document: %w", err)
		}

		switch kind {
		case KindRuntime:
			var rt Runtime
			if err := yaml.Unmarshal(docBytes, &rt); err != nil {
				return nil, fmt.Errorf("failed to parse Runtime: %w", err)
			}
			if cfg.Runtime != nil {
				return nil, fmt.Errorf("multiple Runtime resources found")
			}
			cfg.Runtime = &rt

		case KindWorkload:
			var wl Workload
			if err := yaml.Unmarshal(docBytes, &wl); err != nil {
				return nil, fmt.Errorf("failed to parse Workload: %w", err)
			}
			cfg.Workloads = append(cfg.Workloads, &wl)

		case "":
			return nil, fmt.Errorf("document missing 'kind' field")

		default:
			return nil, fmt.Errorf("unknown kind: %s", kind)
		}
	}

	return cfg, nil
}

// Default returns a configuration with only a defaulted Runtime.
func Default() *Config {
	cfg := &Config{
		Runtime: &Runtime{
			TypeMeta: TypeMeta{APIVersion: APIVersion, Kind: KindRuntime},
			Metadata: ObjectMeta{Name: "default"},
		},
	}
	cfg.Defaults()
	return cfg
}

// Defaults applies default values to the configuration.
func (c *Config) Defaults() {
	if c.Runtime == nil {
		c.Runtime = &Runtime{
			TypeMeta: TypeMeta{APIVersion: APIVersion, Kind: KindRuntime},
			Metadata: ObjectMeta{Name: "default"},
		}
	}
	c.Runtime.Spec.Defaults()
}

// Defaults fills unset fields of s.
func (s *RuntimeSpec) Defaults() {
	if s.FrameRate == 0 {
		s.FrameRate = 60
	}
	if s.PhysicsRate == 0 {
		s.PhysicsRate = 60
	}
	if s.TimerHistory == 0 {
		s.TimerHistory = 64
	}
	if s.FrameHistory == 0 {
		s.FrameHistory = 120
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.OverrunLogInterval == 0 {
		s.OverrunLogInterval = Duration(time.Second)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Runtime != nil {
		if err := c.Runtime.Spec.Validate(); err != nil {
			return fmt.Errorf("Runtime %q: %w", c.Runtime.Metadata.Name, err)
		}
	}

	names := make(map[string]bool)
	for _, wl := range c.Workloads {
		if wl.Metadata.Name == "" {
			return fmt.Errorf("%w: Workload must have metadata.name", ErrInvalid)
		}
		if names[wl.Metadata.Name] {
			return fmt.Errorf("%w: duplicate Workload name: %s", ErrInvalid, wl.Metadata.Name)
		}
		names[wl.Metadata.Name] = true

		if err := wl.Spec.validate(); err != nil {
			return fmt.Errorf("Workload %q: %w", wl.Metadata.Name, err)
		}
	}
	return nil
}

// Validate checks s for out-of-range values. It expects Defaults to have
// been applied.
func (s RuntimeSpec) Validate() error {
	if s.FrameRate <= 0 {
		return fmt.Errorf("%w: frameRate must be > 0", ErrInvalid)
	}
	if s.PhysicsRate <= 0 {
		return fmt.Errorf("%w: physicsRate must be > 0", ErrInvalid)
	}
	if s.MaxFrameDelta < 0 {
		return fmt.Errorf("%w: maxFrameDelta must be >= 0", ErrInvalid)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalid)
	}
	if s.SubmitRate < 0 {
		return fmt.Errorf("%w: submitRate must be >= 0", ErrInvalid)
	}
	if s.TimerHistory < 0 || s.FrameHistory < 0 {
		return fmt.Errorf("%w: history sizes must be >= 0", ErrInvalid)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

func (s WorkloadSpec) validate() error {
	if len(s.Timers) == 0 {
		return fmt.Errorf("%w: at least one timer is required", ErrInvalid)
	}
	seen := make(map[string]bool)
	for i, t := range s.Timers {
		if t.Name == "" {
			return fmt.Errorf("%w: timers[%d] must have a name", ErrInvalid, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate timer name: %s", ErrInvalid, t.Name)
		}
		seen[t.Name] = true
		if t.Delay <= 0 {
			return fmt.Errorf("%w: timer %q: delay must be > 0", ErrInvalid, t.Name)
		}
		if t.Offload < 0 || t.FailEvery < 0 || t.Retries < 0 {
			return fmt.Errorf("%w: timer %q: offload, failEvery and retries must be >= 0", ErrInvalid, t.Name)
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalid, s)
	}
}

// UnmarshalYAML implements custom YAML unmarshaling for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements custom YAML marshaling for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	if d == 0 {
		return "", nil
	}
	return time.Duration(d).String(), nil
}
