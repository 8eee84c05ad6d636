package table

import (
	"github.com/viant/procsched/internal/swtch"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/file"
	"github.com/viant/procsched/service/vm"
)

// Entry is one process table slot. Every field is guarded by the table
// lock.
type Entry struct {
	State           proc.State
	PID             int
	Parent          proc.Handle
	Chan            interface{}
	Level           proc.Level
	ArrivalTick     uint64
	QueuedTick      uint64
	WaitingTicks    int
	BurstEstimate   int
	Confidence      int
	ConsecutiveRuns int
	Checked         bool
	Killed          bool
	Space           vm.Space
	KStack          vm.Frame
	Context         *swtch.Context
	TrapFrame       proc.TrapFrame
	Files           [file.NOFILE]file.File
	Cwd             file.Dir
	Name            string
	ShmTop          vm.Addr
	CPU             int
	Syscalls        [proc.NumSyscalls]int

	slot int
	gen  uint32
}

// Handle returns a generation-checked reference to the entry.
func (e *Entry) Handle() proc.Handle {
	return proc.Handle{Slot: e.slot, Gen: e.gen}
}

// Slot returns the table index of the entry.
func (e *Entry) Slot() int {
	return e.slot
}

// WaitChan is the channel a parent sleeps on in wait.
func (e *Entry) WaitChan() interface{} {
	return e.Handle()
}

// NextShmAddr moves the shared-memory cursor down one page and returns it.
func (e *Entry) NextShmAddr() vm.Addr {
	e.ShmTop -= vm.PageSize
	return e.ShmTop
}

// CountSyscall records one invocation of s.
func (e *Entry) CountSyscall(s proc.Syscall) {
	if s > 0 && int(s) < proc.NumSyscalls {
		e.Syscalls[s]++
	}
}

// SyscallTotal returns the number of recorded syscalls.
func (e *Entry) SyscallTotal() int {
	total := 0
	for _, n := range e.Syscalls {
		total += n
	}
	return total
}

// MostInvoked returns the syscall with the highest count; ties resolve to
// the lowest number. ok is false when nothing was recorded.
func (e *Entry) MostInvoked() (s proc.Syscall, count int, ok bool) {
	for i, n := range e.Syscalls {
		if n > count {
			s, count, ok = proc.Syscall(i), n, true
		}
	}
	return s, count, ok
}

// Runnable reports whether the entry is RUNNABLE on level.
func (e *Entry) Runnable(level proc.Level) bool {
	return e.State == proc.Runnable && e.Level == level
}

func (e *Entry) reset() {
	slot, gen := e.slot, e.gen
	*e = Entry{slot: slot, gen: gen}
}
