package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/internal/swtch"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/file"
	"github.com/viant/procsched/service/table"
	"github.com/viant/procsched/stats"
	"github.com/viant/procsched/tracing"
	"go.uber.org/zap"
)

// Fork creates a child running program. The child gets a copy of the
// caller's address space, trap frame (with a zero return value), open files
// and working directory. An empty name inherits the caller's.
func (p *Proc) Fork(name string, program Program) (int, error) {
	p.count(proc.SysFork)
	pid, err := p.service.fork(p, p.entry.Handle(), name, program)
	p.trapReturn()
	return pid, err
}

// fork allocates and prepares a child of parent; a zero parent means init.
func (s *Service) fork(h holder, parent proc.Handle, name string, program Program) (pid int, err error) {
	_, span := tracing.StartSpan(context.Background(), "fork")
	defer func() { tracing.EndSpan(span.WithPID(pid), err) }()
	if program == nil {
		return 0, fmt.Errorf("fork: nil program")
	}
	lk := s.table.Lock
	if !h.acquire(lk) {
		return 0, ErrHalted
	}
	if parent.IsZero() {
		parent = s.initHandle
	}
	from := s.table.Resolve(parent)
	if from == nil {
		h.release(lk)
		if parent.IsZero() {
			return 0, ErrNotBooted
		}
		return 0, fmt.Errorf("fork: parent: %w", proc.ErrNotFound)
	}
	tick := s.ticks.Load()
	e, err := s.table.Allocate(tick)
	if err != nil {
		h.release(lk)
		return 0, fmt.Errorf("fork: %w", err)
	}
	parentPID := from.PID
	parentSpace := from.Space
	parentFiles := from.Files
	parentCwd := from.Cwd
	trapFrame := from.TrapFrame
	if name == "" {
		name = from.Name
	}
	h.release(lk)

	kstack, err := s.frames.Alloc()
	if err != nil {
		s.discard(h, e)
		return 0, fmt.Errorf("fork: kernel stack: %w", err)
	}
	space, err := s.memory.Duplicate(parentSpace)
	if err != nil {
		s.frames.Free(kstack)
		s.discard(h, e)
		return 0, fmt.Errorf("fork: %w", err)
	}
	var files [file.NOFILE]file.File
	for i, f := range parentFiles {
		if f != 0 {
			files[i] = s.files.Dup(f)
		}
	}
	var cwd file.Dir
	if parentCwd != 0 {
		cwd = s.files.DupDir(parentCwd)
	}

	if !h.acquire(lk) {
		return 0, ErrHalted
	}
	child := &Proc{service: s, entry: e, pid: e.PID}
	e.KStack = kstack
	e.Space = space
	e.TrapFrame = trapFrame
	e.TrapFrame.Ret = 0
	e.Files = files
	e.Cwd = cwd
	e.Name = name
	e.Parent = parent
	e.Context = swtch.New(name, s.forkret(child, program), s.halt)
	e.State = proc.Runnable
	e.QueuedTick = s.ticks.Load()
	pid = e.PID
	s.runnable.Broadcast()
	h.release(lk)

	s.stats.Update(stats.Delta{Forks: 1})
	s.logger.Named(logging.Lifecycle).Debug("forked", zap.Int("pid", pid), zap.Int("parent", parentPID), zap.String("name", name))
	s.notify(event.Forked, tick, event.Lifecycle{PID: pid, ParentPID: parentPID, Name: name})
	return pid, nil
}

func (s *Service) discard(h holder, e *table.Entry) {
	if h.acquire(s.table.Lock) {
		s.table.Free(e)
		s.freed.Broadcast()
		h.release(s.table.Lock)
	}
}

// Exit terminates the calling process. It never returns; the parent
// collects the zombie with Wait.
func (p *Proc) Exit() {
	p.count(proc.SysExit)
	p.exit()
}

func (p *Proc) exit() {
	s := p.service
	e := p.entry
	lk := s.table.Lock
	_, span := tracing.StartSpan(context.Background(), "exit")
	tracing.EndSpan(span.WithPID(p.pid), nil)

	p.acquire(lk)
	isInit := e.Handle() == s.initHandle
	p.release(lk)
	if isInit {
		fatal.Panicf("init exiting")
	}
	for i, f := range e.Files {
		if f != 0 {
			s.files.Close(f)
			e.Files[i] = 0
		}
	}
	if e.Cwd != 0 {
		s.files.PutDir(e.Cwd)
		e.Cwd = 0
	}
	if dropped := s.shm.Detach(p); dropped > 0 {
		s.logger.Named(logging.Scheduler).Debug("shm detached", zap.Int("pid", p.pid), zap.Int("refs", dropped))
	}

	p.acquire(lk)
	if parent := s.table.Resolve(e.Parent); parent != nil {
		s.wakeup1(parent.WaitChan())
	}
	init := s.table.Resolve(s.initHandle)
	for _, child := range s.table.Children(e.Handle()) {
		child.Parent = s.initHandle
		if child.State == proc.Zombie && init != nil {
			s.wakeup1(init.WaitChan())
		}
	}
	e.State = proc.Zombie
	tick := s.ticks.Load()
	s.stats.Update(stats.Delta{Exits: 1})
	s.notify(event.Exited, tick, event.Lifecycle{PID: p.pid, Name: e.Name})
	p.schedExit()
}

// Wait reaps one zombie child and returns its pid. It returns
// proc.ErrNoChildren when the caller has no children or was killed, and
// sleeps otherwise.
func (p *Proc) Wait() (pid int, err error) {
	p.count(proc.SysWait)
	s := p.service
	e := p.entry
	lk := s.table.Lock
	p.acquire(lk)
	for {
		children := s.table.Children(e.Handle())
		for _, child := range children {
			if child.State != proc.Zombie {
				continue
			}
			pid, name := child.PID, child.Name
			s.frames.Free(child.KStack)
			s.memory.Destroy(child.Space)
			s.table.Free(child)
			s.freed.Broadcast()
			tick := s.ticks.Load()
			p.release(lk)

			_, span := tracing.StartSpan(context.Background(), "wait")
			tracing.EndSpan(span.WithPID(pid), nil)
			s.stats.Update(stats.Delta{Reaps: 1})
			s.notify(event.Reaped, tick, event.Lifecycle{PID: pid, ParentPID: p.pid, Name: name})
			p.trapReturn()
			return pid, nil
		}
		if len(children) == 0 || e.Killed {
			p.release(lk)
			p.trapReturn()
			return 0, proc.ErrNoChildren
		}
		p.Sleep(e.WaitChan(), lk)
	}
}

// Kill marks pid killed. The victim exits at its next trap return.
func (p *Proc) Kill(pid int) error {
	p.count(proc.SysKill)
	err := p.service.kill(p, pid)
	p.trapReturn()
	return err
}

func (s *Service) kill(h holder, pid int) (err error) {
	_, span := tracing.StartSpan(context.Background(), "kill")
	defer func() { tracing.EndSpan(span.WithPID(pid), err) }()
	lk := s.table.Lock
	if !h.acquire(lk) {
		return ErrHalted
	}
	e := s.table.Find(pid)
	if e == nil {
		h.release(lk)
		return fmt.Errorf("kill %d: %w", pid, proc.ErrNotFound)
	}
	e.Killed = true
	if e.State == proc.Sleeping {
		e.State = proc.Runnable
		e.Chan = nil
		e.QueuedTick = s.ticks.Load()
		s.runnable.Broadcast()
	}
	name := e.Name
	tick := s.ticks.Load()
	h.release(lk)

	s.stats.Update(stats.Delta{Kills: 1})
	s.logger.Named(logging.Lifecycle).Info("killed", zap.Int("pid", pid))
	s.notify(event.Killed, tick, event.Lifecycle{PID: pid, Name: name})
	return nil
}

// ChangeQueue moves pid to level and returns its previous level.
func (p *Proc) ChangeQueue(pid int, level proc.Level) (proc.Level, error) {
	p.count(proc.SysChangeQueue)
	old, err := p.service.changeQueue(p, pid, level)
	p.trapReturn()
	return old, err
}

func (s *Service) changeQueue(h holder, pid int, level proc.Level) (proc.Level, error) {
	lk := s.table.Lock
	if !h.acquire(lk) {
		return 0, ErrHalted
	}
	tick := s.ticks.Load()
	old, err := s.table.ChangeQueue(pid, level, tick)
	h.release(lk)
	if err != nil {
		return 0, err
	}
	s.notify(event.QueueChanged, tick, event.Lifecycle{PID: pid, From: old, To: level})
	return old, nil
}

// SetParameters sets the SJF burst estimate and confidence of pid.
func (p *Proc) SetParameters(pid, burst, confidence int) error {
	p.count(proc.SysSetParameters)
	lk := p.service.table.Lock
	p.acquire(lk)
	err := p.service.table.SetParameters(pid, burst, confidence)
	p.release(lk)
	p.trapReturn()
	return err
}

// GetPID returns the process id, counting a getpid syscall.
func (p *Proc) GetPID() int {
	p.count(proc.SysGetPID)
	p.trapReturn()
	return p.pid
}

// Uptime returns the ticks since boot.
func (p *Proc) Uptime() uint64 {
	p.count(proc.SysUptime)
	p.trapReturn()
	return p.service.ticks.Load()
}

// Reaper is the default init program: it reaps children forever.
func Reaper(p *Proc) {
	for {
		if _, err := p.Wait(); errors.Is(err, proc.ErrNoChildren) {
			p.awaitChild()
		}
	}
}

// awaitChild sleeps until a child exits, unless a zombie is already there.
func (p *Proc) awaitChild() {
	s := p.service
	lk := s.table.Lock
	p.acquire(lk)
	for _, child := range s.table.Children(p.entry.Handle()) {
		if child.State == proc.Zombie {
			p.release(lk)
			return
		}
	}
	p.Sleep(p.entry.WaitChan(), lk)
	p.release(lk)
}
