package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procsched/model/proc"
	vmmemory "github.com/viant/procsched/service/vm/memory"
)

func newBooted(t *testing.T, options ...Option) *Service {
	t.Helper()
	srv, err := New(options...)
	require.NoError(t, err)
	require.NoError(t, srv.Boot(nil))
	return srv
}

// startMachine runs srv until the test ends.
func startMachine(t *testing.T, srv *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("machine did not stop")
		}
	})
}

func infoOf(srv *Service, pid int) (proc.Info, bool) {
	infos, _ := srv.Processes()
	for _, info := range infos {
		if info.PID == pid {
			return info, true
		}
	}
	return proc.Info{}, false
}

func stateOf(srv *Service, pid int) proc.State {
	info, ok := infoOf(srv, pid)
	if !ok {
		return proc.Unused
	}
	return info.State
}

func idle(p *Proc) {
	_ = p.SleepTicks(1 << 40)
}

func TestNew_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		config  func(c *Config)
		wantErr bool
	}{
		{name: "default", config: func(c *Config) {}},
		{name: "no cpu", config: func(c *Config) { c.CPUs = 0 }, wantErr: true},
		{name: "zero quantum", config: func(c *Config) { c.Quantum = 0 }, wantErr: true},
		{name: "confidence over 100", config: func(c *Config) { c.DefaultConfidence = 101 }, wantErr: true},
		{name: "empty budget", config: func(c *Config) { c.Budget.SJF = 0 }, wantErr: true},
		{name: "negative interval", config: func(c *Config) { c.TickInterval = -time.Second }, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.config(&config)
			srv, err := New(WithConfig(config))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, srv.BootID())
			assert.Equal(t, config, srv.Config())
		})
	}
}

func TestService_Boot(t *testing.T) {
	srv, err := New(WithBootID("boot-1"))
	require.NoError(t, err)
	_, err = srv.Spawn("early", idle)
	assert.ErrorIs(t, err, ErrNotBooted)

	require.NoError(t, srv.Boot(nil))
	assert.ErrorIs(t, srv.Boot(nil), ErrBooted)
	assert.Equal(t, "boot-1", srv.BootID())

	infos, err := srv.Processes()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].PID)
	assert.Equal(t, "init", infos[0].Name)
	assert.Equal(t, proc.Runnable, infos[0].State)
	assert.Equal(t, proc.RoundRobin, infos[0].Level)
	assert.NoError(t, srv.Check())
}

func TestService_Spawn(t *testing.T) {
	srv := newBooted(t)
	testCases := []struct {
		name  string
		pid   int
		level proc.Level
	}{
		{name: "second", pid: 2, level: proc.RoundRobin},
		{name: "third", pid: 3, level: proc.FCFS},
		{name: "fourth", pid: 4, level: proc.FCFS},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pid, err := srv.Spawn(tc.name, idle)
			require.NoError(t, err)
			assert.Equal(t, tc.pid, pid)
			info, ok := infoOf(srv, pid)
			require.True(t, ok)
			assert.Equal(t, tc.name, info.Name)
			assert.Equal(t, tc.level, info.Level)
			assert.Equal(t, 1, info.ParentPID)
			assert.Equal(t, proc.Runnable, info.State)
			assert.Equal(t, 50, info.Confidence)
			assert.Equal(t, 2, info.BurstEstimate)
		})
	}
	assert.NoError(t, srv.Check())
	assert.Equal(t, 3, srv.Stats().Forks)
}

func TestService_SpawnTableFull(t *testing.T) {
	config := DefaultConfig()
	config.Procs = 2
	srv := newBooted(t, WithConfig(config))
	_, err := srv.Spawn("a", idle)
	require.NoError(t, err)
	_, err = srv.Spawn("b", idle)
	assert.ErrorIs(t, err, proc.ErrNoSlot)
}

func TestService_SpawnRollback(t *testing.T) {
	testCases := []struct {
		name   string
		inject func(m *vmmemory.Memory)
	}{
		{name: "address space", inject: func(m *vmmemory.Memory) { m.FailNextDuplicate(1) }},
		{name: "kernel stack", inject: func(m *vmmemory.Memory) { m.FailNextAlloc(1) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mem := vmmemory.New()
			srv := newBooted(t, WithMemory(mem, mem))
			frames, spaces := mem.Frames(), mem.Spaces()
			freed := srv.Freed()
			tc.inject(mem)
			_, err := srv.Spawn("doomed", idle)
			assert.ErrorIs(t, err, proc.ErrOutOfMemory)
			select {
			case <-freed:
			default:
				assert.Fail(t, "slot release not signalled")
			}
			infos, err := srv.Processes()
			require.NoError(t, err)
			assert.Len(t, infos, 1)
			assert.Equal(t, frames, mem.Frames())
			assert.Equal(t, spaces, mem.Spaces())

			pid, err := srv.Spawn("next", idle)
			require.NoError(t, err)
			assert.Equal(t, 3, pid)
		})
	}
}

func TestService_ChangeQueue(t *testing.T) {
	srv := newBooted(t)
	pid, err := srv.Spawn("worker", idle)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		pid     int
		level   proc.Level
		old     proc.Level
		wantErr error
	}{
		{name: "to fcfs", pid: pid, level: proc.FCFS, old: proc.RoundRobin},
		{name: "to sjf", pid: pid, level: proc.SJF, old: proc.FCFS},
		{name: "invalid level", pid: pid, level: 4, wantErr: proc.ErrInvalidLevel},
		{name: "unknown pid", pid: 42, level: proc.SJF, wantErr: proc.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			old, err := srv.ChangeQueue(tc.pid, tc.level)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.old, old)
			info, _ := infoOf(srv, tc.pid)
			assert.Equal(t, tc.level, info.Level)
		})
	}
}

func TestService_SetProcessParameters(t *testing.T) {
	srv := newBooted(t)
	pid, err := srv.Spawn("worker", idle)
	require.NoError(t, err)

	require.NoError(t, srv.SetProcessParameters(pid, 7, 150))
	info, _ := infoOf(srv, pid)
	assert.Equal(t, 7, info.BurstEstimate)
	assert.Equal(t, 100, info.Confidence)
	assert.ErrorIs(t, srv.SetProcessParameters(99, 1, 1), proc.ErrNotFound)
}

func TestService_Aging(t *testing.T) {
	config := DefaultConfig()
	config.AgingThreshold = 5
	srv := newBooted(t, WithConfig(config))
	_, err := srv.Spawn("rr", idle)
	require.NoError(t, err)
	pid, err := srv.Spawn("batch", idle)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		ticks int
		level proc.Level
	}{
		{name: "below threshold", ticks: 4, level: proc.FCFS},
		{name: "first promotion", ticks: 1, level: proc.SJF},
		{name: "second promotion", ticks: 5, level: proc.RoundRobin},
		{name: "stays on top", ticks: 5, level: proc.RoundRobin},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < tc.ticks; i++ {
				require.True(t, srv.Tick())
			}
			info, _ := infoOf(srv, pid)
			assert.Equal(t, tc.level, info.Level)
		})
	}
	assert.EqualValues(t, 15, srv.Uptime())
	assert.Equal(t, 2, srv.Stats().Promotions)
	for _, pid := range []int{1, 2} {
		info, _ := infoOf(srv, pid)
		assert.Equal(t, proc.RoundRobin, info.Level)
	}
}

func TestService_SJFDeferredCandidateRuns(t *testing.T) {
	testCases := []struct {
		name       string
		confidence int
		ticks      int
		promotions int
	}{
		{name: "draw eventually accepts", confidence: 50},
		{name: "aging rescues zero confidence", confidence: 0, ticks: 5, promotions: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			config.CPUs = 1
			config.AgingThreshold = 5
			srv := newBooted(t, WithConfig(config))
			ran := make(chan int, 1)
			pid, err := srv.Spawn("job", func(p *Proc) {
				ran <- p.PID()
			})
			require.NoError(t, err)
			_, err = srv.ChangeQueue(pid, proc.SJF)
			require.NoError(t, err)
			require.NoError(t, srv.SetProcessParameters(pid, 2, tc.confidence))
			startMachine(t, srv)

			for i := 0; i < tc.ticks; i++ {
				require.True(t, srv.Tick())
			}
			select {
			case got := <-ran:
				assert.Equal(t, pid, got)
			case <-time.After(5 * time.Second):
				info, _ := infoOf(srv, pid)
				require.FailNow(t, "runnable job never scheduled", "%+v", info)
			}
			assert.Equal(t, tc.promotions, srv.Stats().Promotions)
		})
	}
}

func TestService_Kill(t *testing.T) {
	srv := newBooted(t)
	pid, err := srv.Spawn("victim", idle)
	require.NoError(t, err)

	require.NoError(t, srv.Kill(pid))
	info, _ := infoOf(srv, pid)
	assert.True(t, info.Killed)
	assert.Equal(t, proc.Runnable, info.State)
	assert.ErrorIs(t, srv.Kill(99), proc.ErrNotFound)
	assert.Equal(t, 1, srv.Stats().Kills)
}

func TestService_Shutdown(t *testing.T) {
	srv := newBooted(t)
	assert.False(t, srv.Halted())
	srv.Shutdown()
	srv.Shutdown()
	assert.True(t, srv.Halted())
	assert.False(t, srv.Tick())

	_, err := srv.Spawn("late", idle)
	assert.ErrorIs(t, err, ErrHalted)
	_, err = srv.Processes()
	assert.ErrorIs(t, err, ErrHalted)
	assert.ErrorIs(t, srv.Kill(1), ErrHalted)
	assert.NoError(t, srv.Err())
}

func TestService_StartTwice(t *testing.T) {
	srv := newBooted(t)
	startMachine(t, srv)
	require.Eventually(t, func() bool {
		return stateOf(srv, 1) == proc.Sleeping
	}, 5*time.Second, time.Millisecond)
	assert.ErrorIs(t, srv.Start(context.Background()), ErrStarted)
}

func TestService_InitExitHalts(t *testing.T) {
	srv, err := New()
	require.NoError(t, err)
	require.NoError(t, srv.Boot(func(p *Proc) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init exiting")
	assert.True(t, srv.Halted())
	assert.Equal(t, err, srv.Err())
}
