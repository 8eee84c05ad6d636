package clock

import (
	"sync"
	"time"
)

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Ticks is the monotonic clock-interrupt counter. Reads and advances are
// serialized by its own lock, independent of the process table lock.
type Ticks struct {
	mu      sync.Mutex
	value   uint64
	changed chan struct{}
}

// NewTicks returns a counter starting at zero.
func NewTicks() *Ticks {
	return &Ticks{changed: make(chan struct{})}
}

// Load returns the current tick.
func (t *Ticks) Load() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Advance increments the counter and releases everyone blocked in Next.
func (t *Ticks) Advance() uint64 {
	t.mu.Lock()
	t.value++
	v := t.value
	ch := t.changed
	t.changed = make(chan struct{})
	t.mu.Unlock()
	close(ch)
	return v
}

// Next returns a channel closed on the first advance past since. If the
// counter already moved past since the returned channel is closed.
func (t *Ticks) Next(since uint64) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.value > since {
		done := make(chan struct{})
		close(done)
		return done
	}
	return t.changed
}
