// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package logger provides the CLI's structured logger.
//
// Records are written as "[LEVEL] message key=value" with the level colored
// through lipgloss, so color follows the terminal's capabilities and NO_COLOR.
// Setting LOG_FORMAT=json switches to slog's JSON handler.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	l := ParseLevel(level)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
	}
	return slog.New(NewConsoleHandler(w, lipgloss.NewRenderer(w), l))
}

// ConsoleHandler is a slog.Handler for human-readable terminal output.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	attrs  []slog.Attr
	prefix string
	styles map[slog.Level]lipgloss.Style
	dim    lipgloss.Style
}

// NewConsoleHandler creates a handler that styles through r.
func NewConsoleHandler(w io.Writer, r *lipgloss.Renderer, level slog.Level) *ConsoleHandler {
	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		styles: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("6")),
			slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("2")),
			slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
		dim: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	style, ok := h.styles[r.Level]
	if !ok {
		style = h.dim
	}
	buf.WriteString(style.Render("[" + r.Level.String() + "]"))
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	// Handler attrs already carry their group prefix.
	for _, a := range h.attrs {
		h.writeAttr(&buf, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.qualify(a.Key), a.Value)
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

// qualify prefixes key with the open groups. An empty key (an inlined
// group) takes the group path itself.
func (h *ConsoleHandler) qualify(key string) string {
	if key == "" {
		return strings.TrimSuffix(h.prefix, ".")
	}
	return h.prefix + key
}

// writeAttr writes key=value, flattening groups into dotted keys.
func (h *ConsoleHandler) writeAttr(buf *strings.Builder, key string, v slog.Value) {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, a := range v.Group() {
			sub := a.Key
			if key != "" {
				sub = key + "." + a.Key
			}
			h.writeAttr(buf, sub, a.Value)
		}
		return
	}
	if key == "" {
		return
	}
	buf.WriteString(" ")
	buf.WriteString(h.dim.Render(key + "=" + v.String()))
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}
