package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/runningwild/glop/glog"
)

type Logger = glog.Logger

var (
	mu     sync.RWMutex
	logger Logger
)

func init() {
	logger = glog.New(&glog.Opts{
		Level: slog.LevelInfo,
	})
}

func DefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func swap(next Logger) Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	logger = next
	return prev
}

func Trace(msg string, args ...interface{}) {
	doLog(glog.LevelTrace, msg, args...)
}

func Debug(msg string, args ...interface{}) {
	doLog(slog.LevelDebug, msg, args...)
}

func Info(msg string, args ...interface{}) {
	doLog(slog.LevelInfo, msg, args...)
}

func Warn(msg string, args ...interface{}) {
	doLog(slog.LevelWarn, msg, args...)
}

func Error(msg string, args ...interface{}) {
	doLog(slog.LevelError, msg, args...)
}

func doLog(lvl slog.Level, msg string, args ...interface{}) {
	l := DefaultLogger()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip [Callers, doLog, <helper>]
	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.Add(args...)
	l.Handler().Handle(context.Background(), r)
}

// Call this to redirect all logging output to the given io.Writer. A cleanup
// function that undoes the redirect is returned.
func Redirect(newOut io.Writer) func() {
	mu.Lock()
	defer mu.Unlock()
	old := logger
	logger = glog.WithRedirect(old, newOut)
	return func() {
		swap(old)
	}
}

// Tells the default logger to change its verbosity.
func SetLogLevel(lvl slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = glog.Relevel(logger, lvl)
}

// Like SetLogLevel but returns a function that restores the previous logger.
func SetLoggingLevel(lvl slog.Level) func() {
	mu.Lock()
	defer mu.Unlock()
	old := logger
	logger = glog.Relevel(old, lvl)
	return func() {
		swap(old)
	}
}

// Parses the names accepted on the command line ("trace", "debug", "info",
// "warn", "error"). Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "trace":
		return glog.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
