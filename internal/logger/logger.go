// Package logger wraps slog with printf-style helpers so call sites stay
// one-liners. Output and level are mutable at runtime for test capture.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	mu       sync.RWMutex
	minLevel slog.LevelVar
	current  = build(os.Stdout)
)

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &minLevel}))
}

// SetOutput replaces the destination for all subsequent log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	current = build(w)
	mu.Unlock()
}

// SetLevel accepts debug, info, warn or error; anything else means info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		minLevel.Set(slog.LevelDebug)
	case "warn", "warning":
		minLevel.Set(slog.LevelWarn)
	case "error":
		minLevel.Set(slog.LevelError)
	default:
		minLevel.Set(slog.LevelInfo)
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debugf(format string, v ...any) {
	get().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	get().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	get().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	get().Error(fmt.Sprintf(format, v...))
}
