package policy

import "github.com/viant/procsched/model/proc"

// Limits holds the per-level tick allowance of one scheduling cycle.
type Limits struct {
	RoundRobin int `json:"roundRobin" yaml:"roundRobin"`
	SJF        int `json:"sjf" yaml:"sjf"`
	FCFS       int `json:"fcfs" yaml:"fcfs"`
}

// DefaultLimits returns 300/200/100 ticks.
func DefaultLimits() Limits {
	return Limits{RoundRobin: 300, SJF: 200, FCFS: 100}
}

func (l Limits) of(level proc.Level) int {
	switch level {
	case proc.RoundRobin:
		return l.RoundRobin
	case proc.SJF:
		return l.SJF
	case proc.FCFS:
		return l.FCFS
	}
	return 0
}

// Budget is the remaining per-level allowance of one CPU. It is owned by
// that CPU and needs no locking.
type Budget struct {
	limits    Limits
	remaining [proc.FCFS + 1]int
}

// NewBudget creates a full budget.
func NewBudget(limits Limits) *Budget {
	ret := &Budget{limits: limits}
	ret.Replenish()
	return ret
}

// Replenish restores every level to its limit.
func (b *Budget) Replenish() {
	for level := proc.RoundRobin; level <= proc.FCFS; level++ {
		b.remaining[level] = b.limits.of(level)
	}
}

// Consume charges one tick to level.
func (b *Budget) Consume(level proc.Level) {
	if level.Valid() && b.remaining[level] > 0 {
		b.remaining[level]--
	}
}

// Exhausted reports whether level has no allowance left.
func (b *Budget) Exhausted(level proc.Level) bool {
	return level.Valid() && b.remaining[level] == 0
}

// Remaining returns the allowance left for level.
func (b *Budget) Remaining(level proc.Level) int {
	if !level.Valid() {
		return 0
	}
	return b.remaining[level]
}
