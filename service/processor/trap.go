package processor

import (
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/stats"
	"go.uber.org/zap"
)

// Work consumes n ticks of CPU time. Every tick is a preemption point
// unless the process holds a spinlock.
func (p *Proc) Work(n int) {
	p.count(proc.SysWork)
	for i := 0; i < n; i++ {
		p.clockTrap()
	}
	p.trapReturn()
}

// clockTrap charges one tick to the running process and decides whether it
// keeps the CPU.
func (p *Proc) clockTrap() {
	s := p.service
	e := p.entry
	lk := s.table.Lock
	masked := p.masked()
	p.acquire(lk)
	c := p.cpu()
	e.ConsecutiveRuns++
	level := e.Level
	runs := e.ConsecutiveRuns
	killed := e.Killed
	c.budget.Consume(level)
	exhausted := c.budget.Exhausted(level)
	p.release(lk)
	if masked {
		return
	}

	switch {
	case killed:
		p.exit()
	case exhausted:
		c = p.cpu()
		next := c.active.Next()
		if c.active == proc.FCFS {
			c.budget.Replenish()
		}
		s.logger.Named(logging.Scheduler).Debug("level budget exhausted",
			zap.Int("cpu", c.ID),
			zap.Int("pid", p.pid),
			zap.Int("source", int(c.active)),
			zap.Int("destination", int(next)))
		c.active = next
		s.stats.Update(stats.Delta{CrossYields: 1})
		p.yield()
	case level == proc.RoundRobin && runs%s.config.Quantum == 0:
		p.yield()
	}
}

// trapReturn is the check every syscall ends with.
func (p *Proc) trapReturn() {
	if p.masked() {
		return
	}
	if p.Killed() {
		p.exit()
	}
}
