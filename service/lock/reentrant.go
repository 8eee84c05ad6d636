package lock

import (
	"sync/atomic"

	"github.com/viant/procsched/internal/fatal"
)

// Locker takes and drops spinlocks on behalf of a process.
type Locker interface {
	PID() int
	Acquire(l *Spinlock)
	Release(l *Spinlock)
}

// ReentrantLock is a Spinlock its owning process may take recursively. The
// owner must release it as many times as it acquired it.
//
// depth > 0 if and only if owner is set.
type ReentrantLock struct {
	lk    *Spinlock
	owner atomic.Int64
	depth atomic.Int32
}

// NewReentrantLock creates a named reentrant lock.
func NewReentrantLock(name string) *ReentrantLock {
	return &ReentrantLock{lk: NewSpinlock(name)}
}

// Name returns the lock name.
func (r *ReentrantLock) Name() string {
	return r.lk.name
}

// Acquire takes the lock for l, incrementing the recursion depth when l
// already owns it. Otherwise l spins on the base lock.
func (r *ReentrantLock) Acquire(l Locker) {
	owner := int64(l.PID())
	if owner == 0 {
		fatal.Panicf("acquirereentrant %s: zero owner", r.lk.name)
	}
	if r.owner.Load() == owner {
		r.depth.Add(1)
		return
	}
	l.Acquire(r.lk)
	r.depth.Store(1)
	r.owner.Store(owner)
}

// Release undoes one Acquire by l; the base lock is dropped when the depth
// reaches zero.
func (r *ReentrantLock) Release(l Locker) {
	owner := int64(l.PID())
	if held := r.owner.Load(); held != owner || r.depth.Load() == 0 {
		fatal.Panicf("releasereentrant %s: owner %d, caller %d", r.lk.name, held, owner)
	}
	if r.depth.Add(-1) > 0 {
		return
	}
	r.owner.Store(0)
	l.Release(r.lk)
}

// Owner returns the owning pid, zero when free.
func (r *ReentrantLock) Owner() int {
	return int(r.owner.Load())
}

// Depth returns the current recursion depth.
func (r *ReentrantLock) Depth() int {
	return int(r.depth.Load())
}
