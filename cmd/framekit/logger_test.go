package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelInfo))

	logger.Info("frame loop started",
		slog.Float64("frame_rate", 60),
		slog.Duration("budget", 16*time.Millisecond),
		slog.String("name", "two words"),
		slog.String("empty", ""),
	)

	out := buf.String()
	for _, want := range []string{"🚀", "frame loop started", "frame_rate=60", "budget=16ms", `name="two words"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "empty=") {
		t.Errorf("empty string attribute was printed: %s", out)
	}
}

func TestConsoleHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("offload failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record printed at warn level: %s", out)
	}
	if !strings.Contains(out, "⚠️") {
		t.Errorf("warn record missing marker: %s", out)
	}
}

func TestConsoleHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelDebug)).
		With(slog.String("runtime", "demo")).
		WithGroup("timer")

	logger.Debug("timer fired", slog.Int("count", 3))

	out := buf.String()
	if !strings.Contains(out, "runtime=demo") || !strings.Contains(out, "timer.count=3") {
		t.Errorf("unexpected output: %s", out)
	}
}
