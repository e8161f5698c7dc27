package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ConsoleHandler is a human-friendly log handler for the framekit CLI.
type ConsoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler creates a new human-friendly log handler.
func NewConsoleHandler(out io.Writer, level slog.Level) *ConsoleHandler {
	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.Format("15:04:05.000"))
	buf.WriteString(" ")
	buf.WriteString(getEmoji(r.Level, r.Message))
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	var attrs []string
	for _, a := range h.attrs {
		if s := formatAttr(a); s != "" {
			attrs = append(attrs, s)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		if s := formatAttr(a); s != "" {
			attrs = append(attrs, s)
		}
		return true
	})

	if len(attrs) > 0 {
		buf.WriteString(" (")
		buf.WriteString(strings.Join(attrs, ", "))
		buf.WriteString(")")
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}

func getEmoji(level slog.Level, msg string) string {
	if level >= slog.LevelError {
		return "❌"
	}
	if level == slog.LevelWarn {
		return "⚠️ "
	}

	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "started"):
		return "🚀"
	case strings.Contains(msgLower, "stopped"),
		strings.Contains(msgLower, "closed"):
		return "🛑"
	case strings.Contains(msgLower, "timer"):
		return "⏱️ "
	case strings.Contains(msgLower, "offload"),
		strings.Contains(msgLower, "worker"):
		return "🔧"
	case strings.Contains(msgLower, "phase"):
		return "🔄"
	case strings.Contains(msgLower, "metrics"):
		return "📈"
	case strings.Contains(msgLower, "config"):
		return "📋"
	case strings.Contains(msgLower, "frame"):
		return "🎞️ "
	default:
		if level == slog.LevelDebug {
			return "🔍"
		}
		return "ℹ️ "
	}
}

func formatAttr(a slog.Attr) string {
	key := a.Key
	val := a.Value.Resolve()

	if val.Kind() == slog.KindString && val.String() == "" {
		return ""
	}

	switch val.Kind() {
	case slog.KindDuration:
		d := val.Duration()
		if d < time.Second {
			return fmt.Sprintf("%s=%s", key, d.Round(time.Microsecond))
		}
		return fmt.Sprintf("%s=%s", key, d.Round(time.Millisecond))
	case slog.KindTime:
		return fmt.Sprintf("%s=%s", key, val.Time().Format("15:04:05"))
	case slog.KindInt64:
		return fmt.Sprintf("%s=%d", key, val.Int64())
	case slog.KindFloat64:
		return fmt.Sprintf("%s=%g", key, val.Float64())
	case slog.KindString:
		s := val.String()
		if !strings.Contains(s, " ") && !strings.Contains(s, ",") {
			return fmt.Sprintf("%s=%s", key, s)
		}
		return fmt.Sprintf("%s=%q", key, s)
	default:
		return fmt.Sprintf("%s=%v", key, val.Any())
	}
}
