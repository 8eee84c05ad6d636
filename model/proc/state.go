package proc

import "fmt"

// State represents the lifecycle state of a process table entry.
type State int

const (
	Unused State = iota
	Embryo
	Sleeping
	Runnable
	Running
	Zombie
)

var stateNames = [...]string{
	Unused:   "unused",
	Embryo:   "embryo",
	Sleeping: "sleeping",
	Runnable: "runnable",
	Running:  "running",
	Zombie:   "zombie",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "???"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown process state: %q", text)
}

// Level is a scheduling queue; lower values have higher priority.
type Level int

const (
	RoundRobin Level = 1
	SJF        Level = 2
	FCFS       Level = 3
)

// Valid reports whether l names one of the three queues.
func (l Level) Valid() bool {
	return l >= RoundRobin && l <= FCFS
}

// Promote returns the next level toward RoundRobin.
func (l Level) Promote() Level {
	if l > RoundRobin {
		return l - 1
	}
	return RoundRobin
}

// Next returns the next lower-priority level, wrapping FCFS to RoundRobin.
func (l Level) Next() Level {
	if l >= FCFS {
		return RoundRobin
	}
	return l + 1
}

func (l Level) String() string {
	switch l {
	case RoundRobin:
		return "rr"
	case SJF:
		return "sjf"
	case FCFS:
		return "fcfs"
	}
	return "???"
}
