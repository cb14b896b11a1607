// Package logger is a thin process-wide facade over slog. The engine and
// its components log through package functions so the output sink and
// level can be swapped at startup without threading a logger handle
// through every constructor.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput redirects all subsequent log records to w. Records already in
// flight keep the previous sink.
func SetOutput(w io.Writer) {
	current.Store(build(w))
}

// SetLevel sets the minimum level by name. Unknown names fall back to
// info rather than erroring; a typo in config must not silence the log.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// logf is the printf family; logw the structured one. Both resolve the
// sink per call so SetOutput takes effect everywhere at once.
func logf(lvl slog.Level, format string, v []any) {
	current.Load().Log(context.Background(), lvl, fmt.Sprintf(format, v...))
}

func logw(lvl slog.Level, msg string, kv []any) {
	current.Load().Log(context.Background(), lvl, msg, kv...)
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

// Infow logs with structured key-value attributes. Used by the execution
// sequencer so that every skipped or failed trade stays individually
// attributable in the log stream.
func Infow(msg string, kv ...any)  { logw(slog.LevelInfo, msg, kv) }
func Warnw(msg string, kv ...any)  { logw(slog.LevelWarn, msg, kv) }
func Errorw(msg string, kv ...any) { logw(slog.LevelError, msg, kv) }
