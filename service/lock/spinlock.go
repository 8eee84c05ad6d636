package lock

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/viant/procsched/internal/fatal"
)

// Anonymous is the holder id used by callers that are not a CPU (tests,
// host code). Holder checks are skipped for anonymous acquisitions.
const Anonymous = -1

// Spinlock is the base mutual-exclusion lock. It records the id of the CPU
// holding it so that sched can verify lock discipline. The lock may be
// released by a different goroutine than the one that acquired it, which is
// how the process table lock travels across a context switch.
type Spinlock struct {
	name   string
	mu     sync.Mutex
	holder atomic.Int64 // holder id + 2, zero when free
}

// NewSpinlock creates a named spinlock.
func NewSpinlock(name string) *Spinlock {
	return &Spinlock{name: name}
}

// Name returns the lock name.
func (l *Spinlock) Name() string {
	return l.name
}

// Acquire blocks until the lock is held by holder.
func (l *Spinlock) Acquire(holder int) {
	if holder != Anonymous && l.Holding(holder) {
		fatal.Panicf("acquire %s: already held by cpu %d", l.name, holder)
	}
	l.mu.Lock()
	l.holder.Store(int64(holder) + 2)
}

// AcquireUntil spins until the lock is held by holder or done is closed.
// It reports whether the lock was acquired.
func (l *Spinlock) AcquireUntil(holder int, done <-chan struct{}) bool {
	if holder != Anonymous && l.Holding(holder) {
		fatal.Panicf("acquire %s: already held by cpu %d", l.name, holder)
	}
	for !l.mu.TryLock() {
		select {
		case <-done:
			return false
		default:
			runtime.Gosched()
		}
	}
	l.holder.Store(int64(holder) + 2)
	return true
}

// TryAcquire acquires the lock only when it is free.
func (l *Spinlock) TryAcquire(holder int) bool {
	if !l.mu.TryLock() {
		return false
	}
	l.holder.Store(int64(holder) + 2)
	return true
}

// Release drops the lock; holder must match the acquiring holder.
func (l *Spinlock) Release(holder int) {
	if !l.Holding(holder) {
		fatal.Panicf("release %s: not held by %d", l.name, holder)
	}
	l.holder.Store(0)
	l.mu.Unlock()
}

// Holding reports whether holder currently owns the lock.
func (l *Spinlock) Holding(holder int) bool {
	return l.holder.Load() == int64(holder)+2
}

// Locked reports whether anyone holds the lock.
func (l *Spinlock) Locked() bool {
	return l.holder.Load() != 0
}
