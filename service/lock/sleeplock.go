package lock

import "github.com/viant/procsched/internal/fatal"

// Sleeper is the execution context a SleepLock blocks. A running process
// implements it.
type Sleeper interface {
	Locker
	Sleep(ch interface{}, l *Spinlock)
	Wakeup(ch interface{})
}

// SleepLock is a long-term lock: waiters sleep instead of spinning, so it
// may be held across blocking operations.
type SleepLock struct {
	lk     *Spinlock
	locked bool
	pid    int
}

// NewSleepLock creates a named sleep lock.
func NewSleepLock(name string) *SleepLock {
	return &SleepLock{lk: NewSpinlock(name)}
}

// Acquire blocks s until the lock is free, then takes it.
func (l *SleepLock) Acquire(s Sleeper) {
	s.Acquire(l.lk)
	for l.locked {
		s.Sleep(l, l.lk)
	}
	l.locked = true
	l.pid = s.PID()
	s.Release(l.lk)
}

// Release drops the lock and wakes waiters.
func (l *SleepLock) Release(s Sleeper) {
	s.Acquire(l.lk)
	if !l.locked || l.pid != s.PID() {
		holder := l.pid
		s.Release(l.lk)
		fatal.Panicf("releasesleep %s: held by %d, caller %d", l.lk.name, holder, s.PID())
	}
	l.locked = false
	l.pid = 0
	s.Wakeup(l)
	s.Release(l.lk)
}

// Holding reports whether s holds the lock.
func (l *SleepLock) Holding(s Sleeper) bool {
	s.Acquire(l.lk)
	defer s.Release(l.lk)
	return l.locked && l.pid == s.PID()
}
