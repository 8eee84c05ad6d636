// Package shm implements the shared-memory region table. Each region is one
// zeroed frame mapped into every opener's address space below its private
// shared-memory cursor, plus a sleep lock openers use to coordinate.
package shm

import (
	"errors"
	"fmt"

	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/service/lock"
	"github.com/viant/procsched/service/vm"
	"go.uber.org/zap"
)

// DefaultRegions is the default number of regions.
const DefaultRegions = 16

var (
	// ErrInvalidRegion reports a region id out of range.
	ErrInvalidRegion = errors.New("shm: invalid region")
	// ErrNotOpen reports closing a region nobody holds.
	ErrNotOpen = errors.New("shm: region not open")
)

// Process is the caller of a region operation.
type Process interface {
	lock.Sleeper
	Space() vm.Space
	NextShmAddr() vm.Addr
}

type region struct {
	refs     int
	frame    vm.Frame
	mappings map[int][]vm.Addr
	lock     *lock.SleepLock
}

// Info describes one region.
type Info struct {
	ID    int      `json:"id" yaml:"id"`
	Refs  int      `json:"refs" yaml:"refs"`
	Frame vm.Frame `json:"frame" yaml:"frame"`
}

// Table holds the shared-memory regions. Membership changes are serialized
// by its spinlock.
type Table struct {
	lk      *lock.Spinlock
	regions []region
	memory  vm.Manager
	frames  vm.Frames
	logger  *zap.Logger
}

// New creates a table with n regions.
func New(n int, memory vm.Manager, frames vm.Frames, logger *zap.Logger) *Table {
	if n <= 0 {
		n = DefaultRegions
	}
	ret := &Table{
		lk:      lock.NewSpinlock("shmtable"),
		regions: make([]region, n),
		memory:  memory,
		frames:  frames,
		logger:  logging.OrNop(logger).Named(logging.Shm),
	}
	for i := range ret.regions {
		ret.regions[i].mappings = make(map[int][]vm.Addr)
		ret.regions[i].lock = lock.NewSleepLock(fmt.Sprintf("shm%d", i))
	}
	return ret
}

func (t *Table) region(id int) (*region, error) {
	if id < 0 || id >= len(t.regions) {
		return nil, fmt.Errorf("region %d: %w", id, ErrInvalidRegion)
	}
	return &t.regions[id], nil
}

// Open maps region id into the caller's address space and returns the
// mapped address. The first opener allocates and zeroes the frame.
func (t *Table) Open(p Process, id int) (vm.Addr, error) {
	r, err := t.region(id)
	if err != nil {
		return 0, err
	}
	p.Acquire(t.lk)
	defer p.Release(t.lk)
	allocated := false
	if r.refs == 0 {
		frame, err := t.frames.Alloc()
		if err != nil {
			return 0, fmt.Errorf("open region %d: %w", id, err)
		}
		t.frames.Zero(frame)
		r.frame = frame
		allocated = true
	}
	addr := p.NextShmAddr()
	if err := t.memory.Map(p.Space(), addr, r.frame); err != nil {
		if allocated {
			t.frames.Free(r.frame)
			r.frame = 0
		}
		return 0, fmt.Errorf("open region %d: %w", id, err)
	}
	r.refs++
	pid := p.PID()
	r.mappings[pid] = append(r.mappings[pid], addr)
	t.logger.Debug("open", zap.Int("region", id), zap.Int("pid", pid), zap.Uintptr("addr", uintptr(addr)), zap.Int("refs", r.refs))
	return addr, nil
}

// Close drops the caller's reference to region id, unmapping its most
// recent mapping. The last close frees the frame.
func (t *Table) Close(p Process, id int) error {
	r, err := t.region(id)
	if err != nil {
		return err
	}
	p.Acquire(t.lk)
	defer p.Release(t.lk)
	if r.refs == 0 {
		return fmt.Errorf("close region %d: %w", id, ErrNotOpen)
	}
	pid := p.PID()
	if addrs := r.mappings[pid]; len(addrs) > 0 {
		addr := addrs[len(addrs)-1]
		t.memory.Unmap(p.Space(), addr)
		if len(addrs) == 1 {
			delete(r.mappings, pid)
		} else {
			r.mappings[pid] = addrs[:len(addrs)-1]
		}
	}
	r.refs--
	if r.refs == 0 {
		t.frames.Free(r.frame)
		r.frame = 0
		r.mappings = make(map[int][]vm.Addr)
	}
	t.logger.Debug("close", zap.Int("region", id), zap.Int("pid", pid), zap.Int("refs", r.refs))
	return nil
}

// Mapped returns the frame of region id when the caller has it open.
func (t *Table) Mapped(p Process, id int) (vm.Frame, error) {
	r, err := t.region(id)
	if err != nil {
		return 0, err
	}
	p.Acquire(t.lk)
	defer p.Release(t.lk)
	if r.refs == 0 || len(r.mappings[p.PID()]) == 0 {
		return 0, fmt.Errorf("region %d: %w", id, ErrNotOpen)
	}
	return r.frame, nil
}

// Detach drops every region lock and mapping held by an exiting caller, as
// if it closed each region it opened. It returns the references dropped.
func (t *Table) Detach(p Process) int {
	for i := range t.regions {
		if l := t.regions[i].lock; l.Holding(p) {
			l.Release(p)
		}
	}
	p.Acquire(t.lk)
	defer p.Release(t.lk)
	pid := p.PID()
	dropped := 0
	for id := range t.regions {
		r := &t.regions[id]
		addrs := r.mappings[pid]
		if len(addrs) == 0 {
			continue
		}
		for _, addr := range addrs {
			t.memory.Unmap(p.Space(), addr)
		}
		delete(r.mappings, pid)
		r.refs -= len(addrs)
		dropped += len(addrs)
		if r.refs <= 0 {
			r.refs = 0
			t.frames.Free(r.frame)
			r.frame = 0
			r.mappings = make(map[int][]vm.Addr)
		}
		t.logger.Debug("detach", zap.Int("region", id), zap.Int("pid", pid), zap.Int("refs", r.refs))
	}
	return dropped
}

// Lock takes the region sleep lock for the caller.
func (t *Table) Lock(p Process, id int) error {
	r, err := t.region(id)
	if err != nil {
		return err
	}
	r.lock.Acquire(p)
	return nil
}

// Unlock releases the region sleep lock held by the caller.
func (t *Table) Unlock(p Process, id int) error {
	r, err := t.region(id)
	if err != nil {
		return err
	}
	r.lock.Release(p)
	return nil
}

// Ref returns the reference count of region id.
func (t *Table) Ref(id int) int {
	r, err := t.region(id)
	if err != nil {
		return 0
	}
	t.lk.Acquire(lock.Anonymous)
	defer t.lk.Release(lock.Anonymous)
	return r.refs
}

// Frame returns the frame backing region id, zero when closed.
func (t *Table) Frame(id int) vm.Frame {
	r, err := t.region(id)
	if err != nil {
		return 0
	}
	t.lk.Acquire(lock.Anonymous)
	defer t.lk.Release(lock.Anonymous)
	return r.frame
}

// Dump lists the open regions.
func (t *Table) Dump() []Info {
	t.lk.Acquire(lock.Anonymous)
	defer t.lk.Release(lock.Anonymous)
	var result []Info
	for i := range t.regions {
		if r := &t.regions[i]; r.refs > 0 {
			result = append(result, Info{ID: i, Refs: r.refs, Frame: r.frame})
		}
	}
	return result
}
