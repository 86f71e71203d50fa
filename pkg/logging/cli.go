// Package logging provides the slog handler used by the command line.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// CLIHandler writes one colored line per record: "[group] message: key=value ...".
type CLIHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	prefix string
	attrs  []slog.Attr
	color  bool
}

// NewCLIHandler returns a handler writing records at or above level to w.
func NewCLIHandler(w io.Writer, level slog.Leveler) *CLIHandler {
	return &CLIHandler{
		mu:     &sync.Mutex{},
		writer: w,
		level:  level,
		color:  true,
	}
}

// WithoutColor disables the ANSI color codes, for output that is not a terminal.
func (h *CLIHandler) WithoutColor() *CLIHandler {
	c := h.clone()
	c.color = false
	return c
}

func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if h.prefix != "" {
		b.WriteString("[" + h.prefix + "] ")
	}
	b.WriteString(r.Message)

	attrs := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs = appendAttr(attrs, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, a)
		return true
	})
	if len(attrs) > 0 {
		b.WriteString(": " + strings.Join(attrs, " "))
	}

	msg := b.String()
	if h.color {
		msg = levelColor(r.Level) + msg + colorReset
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.writer, msg)
	return err
}

func (h *CLIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

func (h *CLIHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	if c.prefix != "" {
		c.prefix += "." + name
	} else {
		c.prefix = name
	}
	return c
}

func (h *CLIHandler) clone() *CLIHandler {
	return &CLIHandler{
		mu:     h.mu,
		writer: h.writer,
		level:  h.level,
		prefix: h.prefix,
		attrs:  append([]slog.Attr{}, h.attrs...),
		color:  h.color,
	}
}

func appendAttr(out []string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return out
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			ga.Key = a.Key + "." + ga.Key
			out = appendAttr(out, ga)
		}
		return out
	}
	return append(out, fmt.Sprintf("%s=%v", a.Key, a.Value))
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return colorRed
	case l >= slog.LevelWarn:
		return colorYellow
	default:
		return colorGreen
	}
}

// NewCLILogger returns a logger writing to stderr at the named level.
func NewCLILogger(level string) *slog.Logger {
	return slog.New(NewCLIHandler(os.Stderr, ParseLogLevel(level)))
}

// SetDefaultCLILogger installs a CLI logger as the slog default.
func SetDefaultCLILogger(level string) {
	slog.SetDefault(NewCLILogger(level))
}

// ParseLogLevel converts a string log level to slog.Level.
// Defaults to slog.LevelInfo for unrecognized strings.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
