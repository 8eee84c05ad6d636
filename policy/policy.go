package policy

import (
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/table"
)

// Selector picks the next entry of one queue level.
type Selector interface {
	Level() proc.Level
	Select(t *table.Table) *table.Entry
}

// RoundRobin selects the first RUNNABLE level-1 entry in table order.
type RoundRobin struct{}

func (RoundRobin) Level() proc.Level { return proc.RoundRobin }

func (RoundRobin) Select(t *table.Table) *table.Entry {
	var chosen *table.Entry
	t.Each(func(e *table.Entry) bool {
		if e.Runnable(proc.RoundRobin) {
			chosen = e
			return false
		}
		return true
	})
	return chosen
}

// SJF selects the unchecked RUNNABLE level-2 entry with the smallest burst
// estimate, then admits it only if its confidence beats a random draw.
// A rejected candidate is marked checked so the next pass considers the
// next shortest job.
type SJF struct {
	Rand *LCG
}

func (s *SJF) Level() proc.Level { return proc.SJF }

func (s *SJF) Select(t *table.Table) *table.Entry {
	var shortest *table.Entry
	checked := false
	t.Each(func(e *table.Entry) bool {
		if !e.Runnable(proc.SJF) || e.PID == 0 {
			return true
		}
		if e.Checked {
			checked = true
			return true
		}
		if shortest == nil || e.BurstEstimate < shortest.BurstEstimate {
			shortest = e
		}
		return true
	})
	if shortest == nil {
		if checked {
			clearChecked(t)
		}
		return nil
	}
	if shortest.Confidence > s.Rand.Percent() {
		clearChecked(t)
		return shortest
	}
	shortest.Checked = true
	return nil
}

func clearChecked(t *table.Table) {
	t.Each(func(e *table.Entry) bool {
		e.Checked = false
		return true
	})
}

// FCFS selects the RUNNABLE level-3 entry queued earliest.
type FCFS struct{}

func (FCFS) Level() proc.Level { return proc.FCFS }

func (FCFS) Select(t *table.Table) *table.Entry {
	var chosen *table.Entry
	t.Each(func(e *table.Entry) bool {
		if e.Runnable(proc.FCFS) && (chosen == nil || e.QueuedTick < chosen.QueuedTick) {
			chosen = e
		}
		return true
	})
	return chosen
}

// Chain tries selectors in priority order.
type Chain []Selector

// NewChain returns the RR, SJF, FCFS chain sharing rand.
func NewChain(rand *LCG) Chain {
	return Chain{RoundRobin{}, &SJF{Rand: rand}, FCFS{}}
}

// Select returns the first candidate of the selectors whose level is not
// above from.
func (c Chain) Select(t *table.Table, from proc.Level) *table.Entry {
	for _, selector := range c {
		if selector.Level() < from {
			continue
		}
		if e := selector.Select(t); e != nil {
			return e
		}
	}
	return nil
}
