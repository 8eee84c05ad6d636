package table

import (
	"fmt"

	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/lock"
	"github.com/viant/procsched/service/vm"
)

// DefaultSize is the default number of slots (NPROC).
const DefaultSize = 64

// ShmTop is the initial shared-memory cursor of every process.
const ShmTop vm.Addr = 0xA0000

// Defaults seeds the scheduling parameters of new entries.
type Defaults struct {
	Confidence int
	Burst      int
}

// DefaultDefaults returns confidence 50 and burst estimate 2.
func DefaultDefaults() Defaults {
	return Defaults{Confidence: 50, Burst: 2}
}

// Table is the fixed-capacity process table. Lock guards every entry; all
// methods except New expect the caller to hold it.
type Table struct {
	Lock     *lock.Spinlock
	entries  []Entry
	nextPID  int
	defaults Defaults
}

// New creates a table with size slots.
func New(size int, defaults Defaults) *Table {
	if size <= 0 {
		size = DefaultSize
	}
	ret := &Table{
		Lock:     lock.NewSpinlock("ptable"),
		entries:  make([]Entry, size),
		nextPID:  1,
		defaults: defaults,
	}
	for i := range ret.entries {
		ret.entries[i].slot = i
	}
	return ret
}

// Len returns the table capacity.
func (t *Table) Len() int {
	return len(t.entries)
}

// At returns the entry in slot i.
func (t *Table) At(i int) *Entry {
	return &t.entries[i]
}

// Allocate claims the first UNUSED slot as EMBRYO with a fresh pid. pid 1
// and 2 start on the round-robin queue, everything else on FCFS.
func (t *Table) Allocate(tick uint64) (*Entry, error) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.State != proc.Unused {
			continue
		}
		e.reset()
		e.gen++
		if e.gen == 0 {
			e.gen = 1
		}
		e.State = proc.Embryo
		e.PID = t.nextPID
		t.nextPID++
		e.Level = proc.FCFS
		if e.PID == 1 || e.PID == 2 {
			e.Level = proc.RoundRobin
		}
		e.ArrivalTick = tick
		e.QueuedTick = tick
		e.Confidence = t.defaults.Confidence
		e.BurstEstimate = t.defaults.Burst
		e.ShmTop = ShmTop
		e.CPU = -1
		return e, nil
	}
	return nil, proc.ErrNoSlot
}

// Free returns e to UNUSED and clears it.
func (t *Table) Free(e *Entry) {
	e.reset()
	e.CPU = -1
}

// Find returns the live entry with pid, or nil.
func (t *Table) Find(pid int) *Entry {
	if pid <= 0 {
		return nil
	}
	for i := range t.entries {
		e := &t.entries[i]
		if e.State != proc.Unused && e.PID == pid {
			return e
		}
	}
	return nil
}

// Resolve returns the entry h refers to, or nil when the slot was recycled.
func (t *Table) Resolve(h proc.Handle) *Entry {
	if h.IsZero() || h.Slot < 0 || h.Slot >= len(t.entries) {
		return nil
	}
	e := &t.entries[h.Slot]
	if e.gen != h.Gen || e.State == proc.Unused {
		return nil
	}
	return e
}

// Each visits every slot in table order until fn returns false.
func (t *Table) Each(fn func(e *Entry) bool) {
	for i := range t.entries {
		if !fn(&t.entries[i]) {
			return
		}
	}
}

// Children returns the live children of parent.
func (t *Table) Children(parent proc.Handle) []*Entry {
	var result []*Entry
	for i := range t.entries {
		e := &t.entries[i]
		if e.State != proc.Unused && e.Parent == parent {
			result = append(result, e)
		}
	}
	return result
}

// Runnable returns the number of RUNNABLE entries.
func (t *Table) Runnable() int {
	count := 0
	for i := range t.entries {
		if t.entries[i].State == proc.Runnable {
			count++
		}
	}
	return count
}

// Info returns the diagnostic row of e.
func (t *Table) Info(e *Entry) proc.Info {
	info := proc.Info{
		PID:             e.PID,
		Name:            e.Name,
		State:           e.State,
		Level:           e.Level,
		WaitingTicks:    e.WaitingTicks,
		Confidence:      e.Confidence,
		BurstEstimate:   e.BurstEstimate,
		ConsecutiveRuns: e.ConsecutiveRuns,
		ArrivalTick:     e.ArrivalTick,
		Killed:          e.Killed,
		Syscalls:        e.SyscallTotal(),
	}
	if parent := t.Resolve(e.Parent); parent != nil {
		info.ParentPID = parent.PID
	}
	return info
}

// Snapshot lists every non-UNUSED entry in table order.
func (t *Table) Snapshot() []proc.Info {
	var result []proc.Info
	for i := range t.entries {
		e := &t.entries[i]
		if e.State == proc.Unused {
			continue
		}
		result = append(result, t.Info(e))
	}
	return result
}

// ChangeQueue moves pid to level and restarts its arrival clock. It returns
// the previous level.
func (t *Table) ChangeQueue(pid int, level proc.Level, tick uint64) (proc.Level, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("change queue of %d to %d: %w", pid, level, proc.ErrInvalidLevel)
	}
	e := t.Find(pid)
	if e == nil {
		return 0, fmt.Errorf("change queue of %d: %w", pid, proc.ErrNotFound)
	}
	old := e.Level
	e.Level = level
	e.ArrivalTick = tick
	e.QueuedTick = tick
	e.Checked = false
	return old, nil
}

// SetParameters sets the SJF burst estimate and confidence of pid.
// Confidence is clamped to 0..100.
func (t *Table) SetParameters(pid, burst, confidence int) error {
	e := t.Find(pid)
	if e == nil {
		return fmt.Errorf("set parameters of %d: %w", pid, proc.ErrNotFound)
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	e.BurstEstimate = burst
	e.Confidence = confidence
	return nil
}

// CheckInvariants reports the first structural inconsistency found.
func (t *Table) CheckInvariants() error {
	seen := make(map[int]int)
	for i := range t.entries {
		e := &t.entries[i]
		if e.State == proc.Unused {
			if e.PID != 0 {
				return fmt.Errorf("slot %d: unused with pid %d", i, e.PID)
			}
			continue
		}
		if prev, ok := seen[e.PID]; ok {
			return fmt.Errorf("slot %d: pid %d already in slot %d", i, e.PID, prev)
		}
		seen[e.PID] = i
		if e.State == proc.Sleeping && e.Chan == nil {
			return fmt.Errorf("slot %d: pid %d sleeping without channel", i, e.PID)
		}
		if e.State != proc.Sleeping && e.Chan != nil {
			return fmt.Errorf("slot %d: pid %d has channel while %v", i, e.PID, e.State)
		}
		if !e.Level.Valid() {
			return fmt.Errorf("slot %d: pid %d on level %d", i, e.PID, e.Level)
		}
	}
	return nil
}
