package processor

import "github.com/viant/procsched/service/lock"

// AcquireReentrant takes l for the process, recursively if it already owns
// it. Like any spinlock it masks the clock on this CPU: the process keeps
// the CPU until its last ReleaseReentrant and must not sleep, yield or exit
// in between.
func (p *Proc) AcquireReentrant(l *lock.ReentrantLock) {
	l.Acquire(p)
}

// ReleaseReentrant undoes one AcquireReentrant.
func (p *Proc) ReleaseReentrant(l *lock.ReentrantLock) {
	l.Release(p)
}

// masked reports whether the process holds a spinlock, which keeps clock
// interrupts off on its CPU.
func (p *Proc) masked() bool {
	return p.cpu().ncli > 0
}
