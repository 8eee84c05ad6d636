package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Update(t *testing.T) {
	s := New("boot-1")
	var last Stats
	s.OnChange(func(snapshot Stats) {
		last = snapshot
	})
	s.Update(Delta{Forks: 2, Switches: 5})
	s.Update(Delta{Exits: 1, Reaps: 1, Switches: -1})
	assert.Equal(t, 4, last.Switches)

	snapshot := s.Snapshot()
	assert.Equal(t, "boot-1", snapshot.BootID)
	assert.Equal(t, 2, snapshot.Forks)
	assert.Equal(t, 1, snapshot.Exits)
	assert.Equal(t, 1, snapshot.Reaps)

	var nilStats *Stats
	nilStats.Update(Delta{Forks: 1})
	assert.Equal(t, Stats{}.Forks, nilStats.Snapshot().Forks)
}

func TestStats_Concurrent(t *testing.T) {
	s := New("boot-2")
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(Delta{Syscalls: 1})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, s.Snapshot().Syscalls)
}
