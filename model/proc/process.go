package proc

// Handle is a generation-checked reference to a process table slot. A
// handle stays valid only while the slot holds the same incarnation, so a
// recycled slot never satisfies a stale reference.
type Handle struct {
	Slot int
	Gen  uint32
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool {
	return h.Gen == 0
}

// TrapFrame is the saved user-mode register state of a process.
type TrapFrame struct {
	PC  uintptr
	SP  uintptr
	Ret int
}

// Info is one row of the diagnostic process listing.
type Info struct {
	PID             int    `json:"pid" yaml:"pid"`
	ParentPID       int    `json:"parentPid,omitempty" yaml:"parentPid,omitempty"`
	Name            string `json:"name" yaml:"name"`
	State           State  `json:"state" yaml:"state"`
	Level           Level  `json:"queue" yaml:"queue"`
	WaitingTicks    int    `json:"waitTime" yaml:"waitTime"`
	Confidence      int    `json:"confidence" yaml:"confidence"`
	BurstEstimate   int    `json:"burstTime" yaml:"burstTime"`
	ConsecutiveRuns int    `json:"consecutiveRun" yaml:"consecutiveRun"`
	ArrivalTick     uint64 `json:"arrival" yaml:"arrival"`
	Killed          bool   `json:"killed,omitempty" yaml:"killed,omitempty"`
	Syscalls        int    `json:"syscalls" yaml:"syscalls"`
}
