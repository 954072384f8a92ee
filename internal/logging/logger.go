// Package logging sets up log/slog for the daemon: a console or JSON handler
// behind one LevelVar, with every record optionally copied into a RingBuffer
// that the API serves.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Level represents log severity levels.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config describes a Logger.
type Config struct {
	Level  Level
	Output io.Writer
	JSON   bool
	// Name is the process name at the start of console lines.
	Name string
	// Buffer receives a copy of every record that passes the level filter.
	Buffer *RingBuffer
}

// DefaultConfig logs info and above to stderr in console format and keeps
// a copy in the application log buffer.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Name:   "wificonf",
		Buffer: GetAppLogBuffer(),
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Logger is a slog.Logger whose level can be changed at runtime, for
// example on SIGHUP.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = NewConsoleHandler(out, cfg.Name, opts)
	}
	if cfg.Buffer != nil {
		h = &bufferHandler{next: h, buf: cfg.Buffer}
	}

	return &Logger{Logger: slog.New(h), level: level}
}

var defaultLogger atomic.Pointer[Logger]

// Default returns the process-wide logger, built from DefaultConfig on
// first use unless SetDefault ran earlier.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, New(DefaultConfig()))
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// SetLevel changes the level of l and of every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level)
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	return l.level.Level()
}

// WithComponent returns a logger that tags records with component=name.
// The console handler prints it in the line header.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With("component", name), level: l.level}
}

// Audit logs a recorded mode transition. Failed transitions are logged at
// warn level so they survive a "warn" log level.
func (l *Logger) Audit(operation, iface, outcome string, attrs ...any) {
	level := LevelInfo
	if outcome == "error" {
		level = LevelWarn
	}
	args := append([]any{
		"audit", true,
		"operation", operation,
		"interface", iface,
		"outcome", outcome,
	}, attrs...)
	l.Log(context.Background(), level, "transition recorded", args...)
}
