package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/internal/idgen"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/internal/swtch"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/file"
	filememory "github.com/viant/procsched/service/file/memory"
	"github.com/viant/procsched/service/lock"
	"github.com/viant/procsched/service/shm"
	"github.com/viant/procsched/service/table"
	"github.com/viant/procsched/service/timer"
	"github.com/viant/procsched/service/vm"
	vmmemory "github.com/viant/procsched/service/vm/memory"
	"github.com/viant/procsched/stats"
	"github.com/viant/procsched/tracing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrHalted is returned by host calls once the machine stopped.
	ErrHalted = errors.New("processor: machine halted")
	// ErrNotBooted is returned when init does not exist yet.
	ErrNotBooted = errors.New("processor: not booted")
	// ErrBooted is returned by a second Boot.
	ErrBooted = errors.New("processor: already booted")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("processor: already started")
)

// Program is the code a process runs. Returning from it exits the process.
type Program func(p *Proc)

// Service is the simulated machine.
type Service struct {
	config   Config
	bootID   string
	table    *table.Table
	cpus     []*CPU
	chain    policy.Chain
	aging    policy.Aging
	ticks    *clock.Ticks
	timer    *timer.Service
	timerID  int
	memory   vm.Manager
	frames   vm.Frames
	files    file.Table
	shm      *shm.Table
	events   *event.Service
	eventCh  chan *event.Event[event.Lifecycle]
	logger   *zap.Logger
	stats    *stats.Stats
	runnable *signal
	freed    *signal
	syscalls atomic.Int64

	initHandle proc.Handle

	halt     chan struct{}
	haltOnce sync.Once
	fault    atomic.Pointer[error]
	started  atomic.Bool
}

// New creates a machine.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		halt:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.bootID == "" {
		s.bootID = idgen.New()
	}
	s.logger = logging.OrNop(s.logger)
	if s.memory == nil || s.frames == nil {
		mem := vmmemory.New()
		s.memory, s.frames = mem, mem
	}
	if s.files == nil {
		s.files = filememory.New()
	}
	s.table = table.New(s.config.Procs, table.Defaults{
		Confidence: s.config.DefaultConfidence,
		Burst:      s.config.DefaultBurst,
	})
	s.chain = policy.NewChain(policy.NewLCG(s.config.Seed))
	s.aging = policy.Aging{Threshold: s.config.AgingThreshold}
	s.ticks = clock.NewTicks()
	s.stats = stats.New(s.bootID)
	s.runnable = newSignal()
	s.freed = newSignal()
	s.shm = shm.New(s.config.ShmRegions, s.memory, s.frames, s.logger)
	for i := 0; i < s.config.CPUs; i++ {
		s.cpus = append(s.cpus, &CPU{
			ID:        i,
			service:   s,
			active:    proc.RoundRobin,
			scheduler: swtch.Current(fmt.Sprintf("cpu%d", i), s.halt),
			budget:    policy.NewBudget(s.config.Budget),
		})
	}
	s.timerID = len(s.cpus)
	s.timer = timer.New(s.clockInterrupt, timer.Config{Interval: s.config.TickInterval}, s.logger)
	if s.events != nil {
		s.eventCh = make(chan *event.Event[event.Lifecycle], s.config.EventBuffer)
	}
	return s, nil
}

// BootID returns the id of this boot.
func (s *Service) BootID() string {
	return s.bootID
}

// Config returns the machine configuration.
func (s *Service) Config() Config {
	return s.config
}

// Shm returns the shared-memory region table.
func (s *Service) Shm() *shm.Table {
	return s.shm
}

// Boot creates init (pid 1) running program, or Reaper when program is nil.
func (s *Service) Boot(program Program) (err error) {
	_, span := tracing.StartSpan(context.Background(), "boot")
	defer func() { tracing.EndSpan(span, err) }()
	if program == nil {
		program = Reaper
	}
	space, err := s.memory.Create()
	if err != nil {
		return fmt.Errorf("boot: address space: %w", err)
	}
	kstack, err := s.frames.Alloc()
	if err != nil {
		s.memory.Destroy(space)
		return fmt.Errorf("boot: kernel stack: %w", err)
	}
	cwd, err := s.files.Lookup("/")
	if err != nil {
		s.frames.Free(kstack)
		s.memory.Destroy(space)
		return fmt.Errorf("boot: cwd: %w", err)
	}
	release := func() {
		s.files.PutDir(cwd)
		s.frames.Free(kstack)
		s.memory.Destroy(space)
	}

	h := s.host()
	if !h.acquire(s.table.Lock) {
		release()
		return ErrHalted
	}
	if !s.initHandle.IsZero() {
		h.release(s.table.Lock)
		release()
		return ErrBooted
	}
	tick := s.ticks.Load()
	e, err := s.table.Allocate(tick)
	if err != nil {
		h.release(s.table.Lock)
		release()
		return fmt.Errorf("boot: %w", err)
	}
	p := &Proc{service: s, entry: e, pid: e.PID}
	e.Name = "init"
	e.Space = space
	e.KStack = kstack
	e.Cwd = cwd
	e.Context = swtch.New(e.Name, s.forkret(p, program), s.halt)
	e.State = proc.Runnable
	s.initHandle = e.Handle()
	s.runnable.Broadcast()
	h.release(s.table.Lock)

	span.WithPID(p.pid)
	s.logger.Named(logging.Lifecycle).Info("booted", zap.String("bootID", s.bootID), zap.Int("cpus", len(s.cpus)))
	s.notify(event.Booted, tick, event.Lifecycle{PID: p.pid, Name: "init"})
	return nil
}

// Start runs the CPUs, the timer and the event dispatcher until Shutdown,
// a fatal error or ctx cancellation. A fatal error is returned.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	group, gctx := errgroup.WithContext(ctx)
	dispatchCtx, cancel := context.WithCancel(context.Background())
	for _, c := range s.cpus {
		c := c
		group.Go(func() error {
			return c.run(gctx)
		})
	}
	group.Go(func() error {
		return s.timer.Start(gctx)
	})
	if s.eventCh != nil {
		group.Go(func() error {
			return s.dispatch(dispatchCtx)
		})
	}
	group.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.halt:
		}
		s.Shutdown()
		cancel()
		return nil
	})
	err := group.Wait()
	cancel()
	if fault := s.Err(); fault != nil {
		return fault
	}
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return nil
	}
	return err
}

// Shutdown halts the machine. Every process goroutine parks for good and the
// loops started by Start return.
func (s *Service) Shutdown() {
	s.haltOnce.Do(func() {
		close(s.halt)
		s.timer.Shutdown()
	})
}

// Halted reports whether the machine stopped.
func (s *Service) Halted() bool {
	select {
	case <-s.halt:
		return true
	default:
		return false
	}
}

// Err returns the fatal error that halted the machine, if any.
func (s *Service) Err() error {
	if err := s.fault.Load(); err != nil {
		return *err
	}
	return nil
}

func (s *Service) fail(recovered interface{}) error {
	var err error
	if fatalErr, ok := fatal.As(recovered); ok {
		err = fatalErr
	} else {
		err = fmt.Errorf("panic: %v", recovered)
	}
	if s.fault.CompareAndSwap(nil, &err) {
		s.logger.Error("machine halted", zap.Error(err))
	}
	s.Shutdown()
	return s.Err()
}

// Tick raises one clock interrupt. It returns false once halted.
func (s *Service) Tick() bool {
	return s.timer.Tick()
}

// Done returns a channel closed once the machine halts.
func (s *Service) Done() <-chan struct{} {
	return s.halt
}

// Freed returns a channel closed the next time a process table slot is
// released, by a reap or a failed fork.
func (s *Service) Freed() <-chan struct{} {
	return s.freed.Wait()
}

// Uptime returns the number of clock ticks since boot.
func (s *Service) Uptime() uint64 {
	return s.ticks.Load()
}

// NextTick returns a channel closed once the clock moves past since.
func (s *Service) NextTick(since uint64) <-chan struct{} {
	return s.ticks.Next(since)
}

func (s *Service) clockInterrupt() bool {
	if s.Halted() || !s.table.Lock.AcquireUntil(s.timerID, s.halt) {
		return false
	}
	tick := s.ticks.Advance()
	promotions := s.aging.Tick(s.table, tick)
	if s.wakeup1(s.ticks) == 0 && len(promotions) > 0 {
		s.runnable.Broadcast()
	}
	s.table.Lock.Release(s.timerID)

	if len(promotions) == 0 {
		return true
	}
	s.stats.Update(stats.Delta{Promotions: len(promotions)})
	logger := s.logger.Named(logging.Scheduler)
	for _, promotion := range promotions {
		logger.Info("promoted",
			zap.Int("pid", promotion.PID),
			zap.Int("source", int(promotion.From)),
			zap.Int("destination", int(promotion.To)))
		s.notify(event.Promoted, tick, event.Lifecycle{PID: promotion.PID, Name: promotion.Name, From: promotion.From, To: promotion.To})
	}
	return true
}

// wakeup1 makes every entry sleeping on ch RUNNABLE. The caller holds the
// table lock.
func (s *Service) wakeup1(ch interface{}) int {
	woken := 0
	tick := s.ticks.Load()
	s.table.Each(func(e *table.Entry) bool {
		if e.State == proc.Sleeping && e.Chan == ch {
			e.State = proc.Runnable
			e.Chan = nil
			e.QueuedTick = tick
			woken++
		}
		return true
	})
	if woken > 0 {
		s.runnable.Broadcast()
	}
	return woken
}

// Wakeup wakes every process sleeping on ch.
func (s *Service) Wakeup(ch interface{}) error {
	h := s.host()
	if !h.acquire(s.table.Lock) {
		return ErrHalted
	}
	s.wakeup1(ch)
	h.release(s.table.Lock)
	return nil
}

// Kill marks pid killed; a sleeping victim becomes RUNNABLE so it notices.
func (s *Service) Kill(pid int) error {
	return s.kill(s.host(), pid)
}

// Spawn forks a child of init running program.
func (s *Service) Spawn(name string, program Program) (int, error) {
	return s.fork(s.host(), proc.Handle{}, name, program)
}

// Processes lists every live process in table order.
func (s *Service) Processes() ([]proc.Info, error) {
	h := s.host()
	if !h.acquire(s.table.Lock) {
		return nil, ErrHalted
	}
	defer h.release(s.table.Lock)
	return s.table.Snapshot(), nil
}

// ChangeQueue moves pid to level, returning its previous level.
func (s *Service) ChangeQueue(pid int, level proc.Level) (proc.Level, error) {
	return s.changeQueue(s.host(), pid, level)
}

// SetProcessParameters sets the burst estimate and confidence of pid.
func (s *Service) SetProcessParameters(pid, burst, confidence int) error {
	h := s.host()
	if !h.acquire(s.table.Lock) {
		return ErrHalted
	}
	defer h.release(s.table.Lock)
	return s.table.SetParameters(pid, burst, confidence)
}

// MostInvokedSyscall returns the syscall pid invoked most often.
func (s *Service) MostInvokedSyscall(pid int) (proc.Syscall, int, error) {
	h := s.host()
	if !h.acquire(s.table.Lock) {
		return 0, 0, ErrHalted
	}
	defer h.release(s.table.Lock)
	e := s.table.Find(pid)
	if e == nil {
		return 0, 0, fmt.Errorf("most invoked syscall of %d: %w", pid, proc.ErrNotFound)
	}
	sc, count, _ := e.MostInvoked()
	return sc, count, nil
}

// SyscallCount returns the number of syscalls invoked since boot.
func (s *Service) SyscallCount() int64 {
	return s.syscalls.Load()
}

// Stats returns a snapshot of the scheduler counters.
func (s *Service) Stats() stats.Stats {
	return s.stats.Snapshot()
}

// OnStats registers a callback invoked on every counter change. The callback
// runs on machine goroutines, sometimes inside the process table critical
// section, and must not call back into the Service.
func (s *Service) OnStats(cb func(stats.Stats)) {
	s.stats.OnChange(cb)
}

// Check verifies the process table invariants.
func (s *Service) Check() error {
	h := s.host()
	if !h.acquire(s.table.Lock) {
		return ErrHalted
	}
	defer h.release(s.table.Lock)
	return s.table.CheckInvariants()
}

func (s *Service) host() holder {
	return host{halt: s.halt}
}

// holder is an execution identity that takes spinlocks: a process on a CPU
// or host code outside the machine.
type holder interface {
	acquire(l *lock.Spinlock) bool
	release(l *lock.Spinlock)
}

type host struct {
	halt <-chan struct{}
}

func (h host) acquire(l *lock.Spinlock) bool {
	select {
	case <-h.halt:
		return false
	default:
	}
	return l.AcquireUntil(lock.Anonymous, h.halt)
}

func (h host) release(l *lock.Spinlock) {
	l.Release(lock.Anonymous)
}

// signal is a broadcast condition: Wait returns a channel closed by the next
// Broadcast.
type signal struct {
	mux sync.Mutex
	ch  chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) Wait() <-chan struct{} {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.ch
}

func (s *signal) Broadcast() {
	s.mux.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mux.Unlock()
}
