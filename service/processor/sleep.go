package processor

import (
	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/lock"
)

// Sleep atomically releases lk and sleeps on ch, reacquiring lk when
// woken. lk may be the process table lock itself.
func (p *Proc) Sleep(ch interface{}, lk *lock.Spinlock) {
	if lk == nil {
		fatal.Panicf("sleep without lk")
	}
	if ch == nil {
		fatal.Panicf("sleep on nil chan")
	}
	s := p.service
	ptable := s.table.Lock
	if lk != ptable {
		p.acquire(ptable)
		p.release(lk)
	}
	p.entry.Chan = ch
	p.entry.State = proc.Sleeping
	p.sched()
	p.entry.Chan = nil
	if lk != ptable {
		p.release(ptable)
		p.acquire(lk)
	}
}

// Wakeup makes every process sleeping on ch RUNNABLE.
func (p *Proc) Wakeup(ch interface{}) {
	lk := p.service.table.Lock
	p.acquire(lk)
	p.service.wakeup1(ch)
	p.release(lk)
}

// Yield gives up the CPU for one scheduling round.
func (p *Proc) Yield() {
	p.count(proc.SysYield)
	p.yield()
	p.trapReturn()
}

func (p *Proc) yield() {
	s := p.service
	lk := s.table.Lock
	p.acquire(lk)
	p.entry.State = proc.Runnable
	p.entry.QueuedTick = s.ticks.Load()
	s.runnable.Broadcast()
	p.sched()
	p.release(lk)
}

// SleepTicks sleeps for n clock ticks. It returns proc.ErrKilled when the
// process is killed while waiting.
func (p *Proc) SleepTicks(n uint64) error {
	p.count(proc.SysSleep)
	s := p.service
	lk := s.table.Lock
	p.acquire(lk)
	start := s.ticks.Load()
	for s.ticks.Load()-start < n {
		if p.entry.Killed {
			p.release(lk)
			return proc.ErrKilled
		}
		p.Sleep(s.ticks, lk)
	}
	p.release(lk)
	p.trapReturn()
	return nil
}
