package lock

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/procsched/internal/fatal"
)

func TestSpinlock(t *testing.T) {
	l := NewSpinlock("ptable")
	assert.False(t, l.Locked())
	l.Acquire(0)
	assert.True(t, l.Holding(0))
	assert.False(t, l.Holding(1))
	assert.False(t, l.TryAcquire(1))

	assert.Panics(t, func() { l.Acquire(0) }, "double acquire")
	assert.Panics(t, func() { l.Release(1) }, "foreign release")

	l.Release(0)
	assert.False(t, l.Locked())
	assert.True(t, l.TryAcquire(Anonymous))
	assert.True(t, l.Holding(Anonymous))
	l.Release(Anonymous)
}

func TestSpinlock_ReleaseFromOtherGoroutine(t *testing.T) {
	l := NewSpinlock("ptable")
	l.Acquire(2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Release(2)
	}()
	<-done
	assert.False(t, l.Locked())
}

func TestReentrantLock(t *testing.T) {
	var testCases = []struct {
		description string
		depth       int
	}{
		{description: "single", depth: 1},
		{description: "nested", depth: 3},
		{description: "deep", depth: 10},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			r := NewReentrantLock("rl")
			owner, next := &sleeper{pid: 7}, &sleeper{pid: 8}
			for i := 0; i < testCase.depth; i++ {
				r.Acquire(owner)
			}
			assert.Equal(t, testCase.depth, r.Depth())
			assert.Equal(t, 7, r.Owner())
			assert.True(t, r.lk.Locked())

			for i := testCase.depth; i > 1; i-- {
				r.Release(owner)
				assert.Equal(t, 7, r.Owner())
			}
			r.Release(owner)
			assert.Equal(t, 0, r.Depth())
			assert.Equal(t, 0, r.Owner())
			assert.False(t, r.lk.Locked())

			r.Acquire(next)
			assert.Equal(t, 8, r.Owner())
			r.Release(next)
		})
	}
}

func TestReentrantLock_Misuse(t *testing.T) {
	r := NewReentrantLock("rl")
	first := &sleeper{pid: 1}
	assert.Panics(t, func() { r.Release(first) }, "release unheld")
	r.Acquire(first)
	defer r.Release(first)
	assert.Panics(t, func() { r.Release(&sleeper{pid: 2}) }, "release by other owner")
	assert.Panics(t, func() { r.Acquire(&sleeper{pid: 0}) }, "zero owner")

	defer func() {
		e, ok := fatal.As(recover())
		assert.True(t, ok)
		assert.Contains(t, e.Message, "rl")
	}()
	r.Release(&sleeper{pid: 3})
}

func TestReentrantLock_MutualExclusion(t *testing.T) {
	r := NewReentrantLock("rl")
	var inside, violations atomic.Int32
	wg := sync.WaitGroup{}
	for pid := 1; pid <= 8; pid++ {
		wg.Add(1)
		go func(owner *sleeper) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Acquire(owner)
				r.Acquire(owner)
				if inside.Add(1) != 1 {
					violations.Add(1)
				}
				inside.Add(-1)
				r.Release(owner)
				r.Release(owner)
			}
		}(&sleeper{pid: pid})
	}
	wg.Wait()
	assert.EqualValues(t, 0, violations.Load())
	assert.Equal(t, 0, r.Depth())
}

type hub struct {
	mu   sync.Mutex
	cond *sync.Cond
	gen  map[interface{}]int
}

func newHub() *hub {
	h := &hub{gen: map[interface{}]int{}}
	h.cond = sync.NewCond(&h.mu)
	return h
}

type sleeper struct {
	pid int
	hub *hub
}

func (s *sleeper) PID() int            { return s.pid }
func (s *sleeper) Acquire(l *Spinlock) { l.Acquire(Anonymous) }
func (s *sleeper) Release(l *Spinlock) { l.Release(Anonymous) }

func (s *sleeper) Sleep(ch interface{}, l *Spinlock) {
	s.hub.mu.Lock()
	gen := s.hub.gen[ch]
	s.Release(l)
	for s.hub.gen[ch] == gen {
		s.hub.cond.Wait()
	}
	s.hub.mu.Unlock()
	s.Acquire(l)
}

func (s *sleeper) Wakeup(ch interface{}) {
	s.hub.mu.Lock()
	s.hub.gen[ch]++
	s.hub.cond.Broadcast()
	s.hub.mu.Unlock()
}

func TestSleepLock(t *testing.T) {
	h := newHub()
	l := NewSleepLock("region")
	first := &sleeper{pid: 1, hub: h}
	second := &sleeper{pid: 2, hub: h}

	l.Acquire(first)
	assert.True(t, l.Holding(first))
	assert.False(t, l.Holding(second))
	assert.Panics(t, func() { l.Release(second) })

	acquired := make(chan struct{})
	go func() {
		l.Acquire(second)
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("second acquired a held sleep lock")
	default:
	}
	l.Release(first)
	<-acquired
	assert.True(t, l.Holding(second))
	l.Release(second)
	assert.False(t, l.Holding(second))
}

func TestSpinlock_AcquireUntil(t *testing.T) {
	l := NewSpinlock("ptable")
	done := make(chan struct{})
	assert.True(t, l.AcquireUntil(0, done))

	result := make(chan bool)
	go func() {
		result <- l.AcquireUntil(1, done)
	}()
	close(done)
	assert.False(t, <-result)
	assert.True(t, l.Holding(0))
	l.Release(0)
}
