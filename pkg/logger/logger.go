// Package logger provides the slog handler used by the blockgraph binaries: plain text
// output that colours warnings, errors and persistence messages when writing to a terminal.
package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// highlightWords mark INFO messages about writes that should stand out.
var highlightWords = []string{"persist", "commit", "export", "cached"}

// ColorHandler formats records like slog.TextHandler and wraps each line in an
// ANSI colour chosen from its level and message.
type ColorHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
	out   io.Writer
	color bool
}

// NewColorHandler returns a handler writing to w. Colour is enabled only when w is a
// terminal and NO_COLOR is unset.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	return newColorHandler(w, opts, isTerminal(w) && os.Getenv("NO_COLOR") == "")
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *ColorHandler {
	buf := &bytes.Buffer{}
	return &ColorHandler{
		mu:    &sync.Mutex{},
		buf:   buf,
		inner: slog.NewTextHandler(buf, opts),
		out:   w,
		color: color,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := h.buf.Bytes()

	code := h.colorFor(r)
	if code == "" {
		_, err := h.out.Write(line)
		return err
	}
	trimmed := bytes.TrimSuffix(line, []byte("\n"))
	out := make([]byte, 0, len(trimmed)+len(code)+len(colorReset)+1)
	out = append(out, code...)
	out = append(out, trimmed...)
	out = append(out, colorReset...)
	out = append(out, '\n')
	_, err := h.out.Write(out)
	return err
}

func (h *ColorHandler) colorFor(r slog.Record) string {
	if !h.color {
		return ""
	}
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case r.Level == slog.LevelInfo:
		msg := strings.ToLower(r.Message)
		for _, word := range highlightWords {
			if strings.Contains(msg, word) {
				return colorGreen
			}
		}
	}
	return ""
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	return &clone
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

// NewDefaultLogger returns a logger writing coloured text to stderr at level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewLogger builds a logger for a configured level and format ("text" or "json").
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewColorHandler(w, opts))
}

// ParseLevel maps debug, info, warn/warning and error to slog levels. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
