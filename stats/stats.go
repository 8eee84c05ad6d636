package stats

import (
	"sync"
	"time"

	"github.com/viant/procsched/internal/clock"
)

// Delta represents an incremental counter change emitted by the scheduler
// loop, the timer or a lifecycle operation.
type Delta struct {
	Switches      int
	IdlePolls     int
	Forks         int
	Exits         int
	Reaps         int
	Kills         int
	Promotions    int
	CrossYields   int
	Syscalls      int
	DroppedEvents int
}

// Stats keeps aggregated counters. It is safe for concurrent use.
type Stats struct {
	BootID    string    `json:"bootID" yaml:"bootID"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`

	Switches      int `json:"switches" yaml:"switches"`
	IdlePolls     int `json:"idlePolls" yaml:"idlePolls"`
	Forks         int `json:"forks" yaml:"forks"`
	Exits         int `json:"exits" yaml:"exits"`
	Reaps         int `json:"reaps" yaml:"reaps"`
	Kills         int `json:"kills" yaml:"kills"`
	Promotions    int `json:"promotions" yaml:"promotions"`
	CrossYields   int `json:"crossYields" yaml:"crossYields"`
	Syscalls      int `json:"syscalls" yaml:"syscalls"`
	DroppedEvents int `json:"droppedEvents" yaml:"droppedEvents"`

	mux      sync.Mutex
	onChange func(Stats)
}

// New creates counters for one boot.
func New(bootID string) *Stats {
	return &Stats{BootID: bootID, StartedAt: clock.Now()}
}

// Update applies the supplied delta. The onChange callback, if any, gets a
// copy outside the critical section.
func (s *Stats) Update(d Delta) {
	if s == nil {
		return
	}
	s.mux.Lock()
	s.Switches += d.Switches
	s.IdlePolls += d.IdlePolls
	s.Forks += d.Forks
	s.Exits += d.Exits
	s.Reaps += d.Reaps
	s.Kills += d.Kills
	s.Promotions += d.Promotions
	s.CrossYields += d.CrossYields
	s.Syscalls += d.Syscalls
	s.DroppedEvents += d.DroppedEvents
	snapshot := s.copy()
	cb := s.onChange
	s.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

func (s *Stats) copy() Stats {
	return Stats{
		BootID:        s.BootID,
		StartedAt:     s.StartedAt,
		Switches:      s.Switches,
		IdlePolls:     s.IdlePolls,
		Forks:         s.Forks,
		Exits:         s.Exits,
		Reaps:         s.Reaps,
		Kills:         s.Kills,
		Promotions:    s.Promotions,
		CrossYields:   s.CrossYields,
		Syscalls:      s.Syscalls,
		DroppedEvents: s.DroppedEvents,
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (s *Stats) Snapshot() Stats {
	if s == nil {
		return Stats{}
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.copy()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (s *Stats) OnChange(cb func(Stats)) {
	if s == nil {
		return
	}
	s.mux.Lock()
	s.onChange = cb
	s.mux.Unlock()
}
