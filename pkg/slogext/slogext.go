// Package slogext routes slog records to multiple leveled destinations and
// maps the settings-file level names onto slog levels.
package slogext

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
	"github.com/pkg/errors"
)

// LevelTrace sits below slog's built-in debug level, matching the settings
// file's trace level.
const LevelTrace = slog.LevelDebug - 4

// levelOff is higher than any level a record can carry, so a destination
// set to off never fires.
const levelOff = slog.LevelError + 128

// ParseLevel maps a settings-file level name to a slog level. The empty
// string parses as info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "off":
		return levelOff, nil
	case "error":
		return slog.LevelError, nil
	case "warn":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	}
	return 0, errors.Errorf("slogext: unknown level %q", name)
}

// Fanout hands each record to every handler whose level accepts it.
type Fanout struct {
	handlers []slog.Handler
}

func NewFanout(handlers ...slog.Handler) Fanout {
	return Fanout{handlers: handlers}
}

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return Fanout{handlers: next}
}

func (f Fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return Fanout{handlers: next}
}

// Init installs the default logger: a console handler on stderr and an
// append-mode file handler, each with its own level. An unopenable log file
// degrades to console-only logging instead of failing startup.
func Init(consoleLevel, fileLevel slog.Level, filePath string) {
	handlers := []slog.Handler{
		console.NewHandler(os.Stderr, &console.HandlerOptions{Level: consoleLevel}),
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: fileLevel}))
	}

	slog.SetDefault(slog.New(NewFanout(handlers...)))

	if err != nil {
		slog.Warn("Logging to console only", "file", filePath, "error", err)
	}
}
