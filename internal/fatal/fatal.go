// Package fatal halts the simulated machine on contract violations. A
// violation is logged with a call trace truncated to MaxFrames and then
// raised as a panic carrying *Error.
package fatal

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// MaxFrames bounds the recorded call trace, like the ten saved pcs of a
// kernel panic.
const MaxFrames = 10

var logger atomic.Pointer[zap.Logger]

// SetLogger installs the logger used for panic diagnostics.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func current() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Error is the panic value raised by Panicf.
type Error struct {
	Message string
	Frames  []string
}

func (e *Error) Error() string {
	return "panic: " + e.Message
}

// Trace renders the truncated call trace.
func (e *Error) Trace() string {
	return strings.Join(e.Frames, "\n\t<-")
}

// Panicf logs the diagnostic and panics. It never returns.
func Panicf(format string, args ...interface{}) {
	err := &Error{Message: fmt.Sprintf(format, args...), Frames: callers(2)}
	current().Error("kernel panic", zap.String("msg", err.Message), zap.Strings("trace", err.Frames))
	panic(err)
}

// As reports whether a recovered value is a fatal error.
func As(recovered interface{}) (*Error, bool) {
	err, ok := recovered.(*Error)
	return err, ok
}

func callers(skip int) []string {
	pcs := make([]uintptr, MaxFrames)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var result []string
	for {
		frame, more := frames.Next()
		result = append(result, fmt.Sprintf("%s:%d", frame.Function, frame.Line))
		if !more {
			break
		}
	}
	return result
}
