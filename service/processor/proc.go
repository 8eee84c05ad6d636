package processor

import (
	"runtime"

	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/internal/swtch"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/lock"
	"github.com/viant/procsched/service/table"
	"github.com/viant/procsched/service/vm"
	"github.com/viant/procsched/stats"
)

// Proc is the handle a running Program uses to invoke system calls. Its
// methods must only be called from the program's own goroutine.
type Proc struct {
	service *Service
	entry   *table.Entry
	pid     int
}

// PID returns the process id without counting a syscall.
func (p *Proc) PID() int {
	return p.pid
}

func (p *Proc) cpu() *CPU {
	id := p.entry.CPU
	if id < 0 || id >= len(p.service.cpus) {
		fatal.Panicf("pid %d: no cpu", p.pid)
	}
	return p.service.cpus[id]
}

func (p *Proc) acquire(l *lock.Spinlock) bool {
	if !p.cpu().acquire(l) {
		runtime.Goexit()
	}
	return true
}

func (p *Proc) release(l *lock.Spinlock) {
	p.cpu().release(l)
}

// Acquire takes a spinlock on the process's CPU.
func (p *Proc) Acquire(l *lock.Spinlock) {
	p.acquire(l)
}

// Release drops a spinlock taken with Acquire.
func (p *Proc) Release(l *lock.Spinlock) {
	p.release(l)
}

func (p *Proc) count(sc proc.Syscall) {
	lk := p.service.table.Lock
	p.acquire(lk)
	p.entry.CountSyscall(sc)
	p.release(lk)
	p.service.syscalls.Add(1)
	p.service.stats.Update(stats.Delta{Syscalls: 1})
}

func (p *Proc) checkSched() *CPU {
	c := p.cpu()
	switch {
	case !p.service.table.Lock.Holding(c.ID):
		fatal.Panicf("sched ptable.lock")
	case c.ncli != 1:
		fatal.Panicf("sched locks")
	case p.entry.State == proc.Running:
		fatal.Panicf("sched running")
	case c.intr:
		fatal.Panicf("sched interruptible")
	}
	return c
}

// sched switches to the CPU scheduler. The caller holds only the table
// lock and has already changed the entry state. The process may resume on
// another CPU.
func (p *Proc) sched() {
	c := p.checkSched()
	intena := c.intena
	if !swtch.Switch(p.entry.Context, c.scheduler) {
		runtime.Goexit()
	}
	p.cpu().intena = intena
}

// schedExit is the final switch of an exiting process.
func (p *Proc) schedExit() {
	c := p.checkSched()
	c.scheduler.Resume()
	runtime.Goexit()
}

// forkret is the first code a new process runs: it still holds the table
// lock taken by the scheduler.
func (s *Service) forkret(p *Proc, program Program) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.fail(r)
			}
		}()
		p.release(s.table.Lock)
		program(p)
		p.exit()
	}
}

// Killed reports whether the process has been killed.
func (p *Proc) Killed() bool {
	lk := p.service.table.Lock
	p.acquire(lk)
	defer p.release(lk)
	return p.entry.Killed
}

// TrapFrame returns the saved user registers.
func (p *Proc) TrapFrame() proc.TrapFrame {
	lk := p.service.table.Lock
	p.acquire(lk)
	defer p.release(lk)
	return p.entry.TrapFrame
}

// SetTrapFrame replaces the saved user registers.
func (p *Proc) SetTrapFrame(tf proc.TrapFrame) {
	lk := p.service.table.Lock
	p.acquire(lk)
	p.entry.TrapFrame = tf
	p.release(lk)
}

// Space returns the process address space.
func (p *Proc) Space() vm.Space {
	lk := p.service.table.Lock
	p.acquire(lk)
	defer p.release(lk)
	return p.entry.Space
}

// NextShmAddr moves the shared-memory cursor down one page.
func (p *Proc) NextShmAddr() vm.Addr {
	lk := p.service.table.Lock
	p.acquire(lk)
	defer p.release(lk)
	return p.entry.NextShmAddr()
}

// Resize grows or shrinks the address space by delta bytes (sbrk).
func (p *Proc) Resize(delta int) (int, error) {
	return p.service.memory.Resize(p.Space(), delta)
}
