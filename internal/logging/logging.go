// Package logging builds the zap loggers shared by the scheduler
// components. Components receive a *zap.Logger and derive a named child.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names used with Logger.Named.
const (
	Scheduler = "scheduler"
	Timer     = "timer"
	Lifecycle = "lifecycle"
	Shm       = "shm"
)

// New creates a logger for the given level ("debug", "info", "warn",
// "error") and format ("json" or "console"). An empty level yields a no-op
// logger.
func New(level, format string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(format) {
	case "", "json":
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// OrNop returns l or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
