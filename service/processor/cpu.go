package processor

import (
	"context"
	"runtime"

	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/internal/swtch"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/lock"
	"github.com/viant/procsched/service/table"
	"github.com/viant/procsched/stats"
)

// selectRetries bounds the selection passes a CPU makes while RUNNABLE
// entries exist but none is chosen, before it waits for the next tick.
const selectRetries = 64

// CPU is the per-CPU scheduling state. It is touched only by its scheduler
// loop and by the process currently running on it, which never run at the
// same time.
type CPU struct {
	ID        int
	service   *Service
	current   *table.Entry
	active    proc.Level
	scheduler *swtch.Context
	budget    *policy.Budget
	ncli      int
	intena    bool
	intr      bool
}

// pushcli disables interrupts, remembering whether they were enabled at the
// outermost level.
func (c *CPU) pushcli() {
	enabled := c.intr
	c.intr = false
	if c.ncli == 0 {
		c.intena = enabled
	}
	c.ncli++
}

func (c *CPU) popcli() {
	if c.intr {
		fatal.Panicf("popcli - interruptible")
	}
	c.ncli--
	if c.ncli < 0 {
		fatal.Panicf("popcli")
	}
	if c.ncli == 0 && c.intena {
		c.intr = true
	}
}

func (c *CPU) acquire(l *lock.Spinlock) bool {
	c.pushcli()
	return l.AcquireUntil(c.ID, c.service.halt)
}

func (c *CPU) release(l *lock.Spinlock) {
	l.Release(c.ID)
	c.popcli()
}

// run is the scheduler loop. It never returns while the machine runs.
func (c *CPU) run(ctx context.Context) (err error) {
	s := c.service
	defer func() {
		if r := recover(); r != nil {
			err = s.fail(r)
		}
	}()
	lk := s.table.Lock
	retries := 0
	for {
		if s.Halted() {
			return nil
		}
		c.intr = true
		if !c.acquire(lk) {
			return nil
		}
		e := s.chain.Select(s.table, c.active)
		if e == nil {
			c.budget.Replenish()
			c.active = proc.RoundRobin
			var next <-chan struct{}
			if s.table.Runnable() > 0 {
				// a deferred SJF candidate or a higher level is still waiting
				if retries++; retries < selectRetries {
					c.release(lk)
					runtime.Gosched()
					continue
				}
				next = s.ticks.Next(s.ticks.Load())
			}
			retries = 0
			wake := s.runnable.Wait()
			c.release(lk)
			s.stats.Update(stats.Delta{IdlePolls: 1})
			select {
			case <-wake:
			case <-next:
			case <-s.halt:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		retries = 0
		if e.State == proc.Running {
			fatal.Panicf("scheduler: pid %d already running", e.PID)
		}
		e.State = proc.Running
		e.WaitingTicks = 0
		e.ConsecutiveRuns = 0
		e.CPU = c.ID
		c.current = e
		s.stats.Update(stats.Delta{Switches: 1})
		if !swtch.Switch(c.scheduler, e.Context) {
			return nil
		}
		c.current = nil
		c.release(lk)
	}
}
