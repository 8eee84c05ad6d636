package procsched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/processor"
	"github.com/viant/procsched/service/procdump"
	"go.uber.org/zap"
)

// ErrNoDumpService is returned by Dump when no dump location is configured.
var ErrNoDumpService = errors.New("dump location not configured")

// Runtime drives one boot of the machine.
type Runtime struct {
	machine *processor.Service
	events  *event.Service
	dumps   *procdump.Service
	logger  *zap.Logger

	mux  sync.Mutex
	done chan struct{}
	err  error
}

// Machine returns the simulated machine.
func (r *Runtime) Machine() *processor.Service {
	return r.machine
}

// Boot creates init running program; nil runs the default reaper.
func (r *Runtime) Boot(program processor.Program) error {
	return r.machine.Boot(program)
}

// Start boots the machine if needed and runs it in the background.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.machine.Boot(nil); err != nil && !errors.Is(err, processor.ErrBooted) {
		return err
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.done != nil {
		return processor.ErrStarted
	}
	r.done = make(chan struct{})
	go func() {
		err := r.machine.Start(ctx)
		r.mux.Lock()
		r.err = err
		r.mux.Unlock()
		close(r.done)
	}()
	return nil
}

// Shutdown halts the machine and waits for it to stop.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.machine.Shutdown()
	r.mux.Lock()
	done := r.done
	r.mux.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.events.Close()
	return r.machine.Err()
}

// Run spawns every process of workload as a child of init and returns the
// pids in spawn order.
func (r *Runtime) Run(ctx context.Context, workload *Workload) ([]int, error) {
	if err := workload.Validate(); err != nil {
		return nil, err
	}
	config := r.machine.Config()
	var pids []int
	for _, task := range workload.Processes {
		task.withDefaults(config.DefaultBurst, config.DefaultConfidence)
		for i := 0; i < task.Replicas(); i++ {
			if err := ctx.Err(); err != nil {
				return pids, err
			}
			pid, err := r.machine.Spawn(task.Name, task.Program())
			if err != nil {
				return pids, fmt.Errorf("failed to spawn %s: %w", task.Name, err)
			}
			pids = append(pids, pid)
		}
	}
	r.logger.Info("workload started", zap.String("workload", workload.Name), zap.Ints("pids", pids))
	return pids, nil
}

// WaitIdle blocks until init is the only process left, the machine halts or
// timeout elapses. It re-checks the table each time a slot is freed.
func (r *Runtime) WaitIdle(ctx context.Context, timeout time.Duration) error {
	expired := time.NewTimer(timeout)
	defer expired.Stop()
	for {
		freed := r.machine.Freed()
		infos, err := r.machine.Processes()
		if err != nil {
			if fault := r.machine.Err(); fault != nil {
				return fault
			}
			return err
		}
		if len(infos) <= 1 {
			return nil
		}
		select {
		case <-freed:
		case <-r.machine.Done():
		case <-expired.C:
			return fmt.Errorf("timeout waiting for %d processes", len(infos)-1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Processes lists the live processes.
func (r *Runtime) Processes() ([]proc.Info, error) {
	return r.machine.Processes()
}

// Snapshot captures the process listing and counters.
func (r *Runtime) Snapshot() (*procdump.Dump, error) {
	infos, err := r.machine.Processes()
	if err != nil {
		return nil, err
	}
	stats := r.machine.Stats()
	return &procdump.Dump{
		BootID:    r.machine.BootID(),
		Tick:      r.machine.Uptime(),
		TakenAt:   clock.Now(),
		Processes: infos,
		Stats:     &stats,
	}, nil
}

// Dump saves a snapshot to the configured location and returns its URL.
func (r *Runtime) Dump(ctx context.Context) (string, error) {
	if r.dumps == nil {
		return "", ErrNoDumpService
	}
	dump, err := r.Snapshot()
	if err != nil {
		return "", err
	}
	return r.dumps.Save(ctx, dump)
}

// OnEvent registers a handler for lifecycle events.
func (r *Runtime) OnEvent(handler func(*event.Event[event.Lifecycle])) error {
	return event.SetListenerOf[event.Lifecycle](r.events, handler)
}

func (t *Task) withDefaults(burst, confidence int) {
	if t.Burst > 0 || t.Confidence > 0 {
		if t.Burst == 0 {
			t.Burst = burst
		}
		if t.Confidence == 0 {
			t.Confidence = confidence
		}
	}
	for _, step := range t.Steps {
		if step != nil && step.Fork != nil {
			step.Fork.withDefaults(burst, confidence)
		}
	}
}
