package policy

import (
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/table"
)

// DefaultAgingThreshold is the number of waiting ticks before promotion.
const DefaultAgingThreshold = 800

// Promotion records one aging promotion.
type Promotion struct {
	PID  int
	Name string
	From proc.Level
	To   proc.Level
}

// Aging promotes entries that waited too long in a RUNNABLE state.
type Aging struct {
	Threshold int
}

// Tick ages every RUNNABLE entry by one tick. Entries reaching the
// threshold restart their wait and move one level toward round-robin.
// The caller holds the table lock.
func (a Aging) Tick(t *table.Table, tick uint64) []Promotion {
	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultAgingThreshold
	}
	var promotions []Promotion
	t.Each(func(e *table.Entry) bool {
		if e.State != proc.Runnable {
			return true
		}
		e.WaitingTicks++
		if e.WaitingTicks < threshold {
			return true
		}
		e.WaitingTicks = 0
		if e.Level == proc.RoundRobin {
			return true
		}
		from := e.Level
		e.Level = from.Promote()
		e.ArrivalTick = tick
		e.QueuedTick = tick
		e.Checked = false
		promotions = append(promotions, Promotion{PID: e.PID, Name: e.Name, From: from, To: e.Level})
		return true
	})
	return promotions
}
