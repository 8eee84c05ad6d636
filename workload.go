package procsched

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/procsched/internal/env"
	"github.com/viant/procsched/internal/yml"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/processor"
	"gopkg.in/yaml.v3"
)

// Workload is a declarative set of processes to spawn on the machine.
type Workload struct {
	Name      string  `json:"name" yaml:"name"`
	Processes []*Task `json:"processes" yaml:"processes"`
}

// Task describes one process: its scheduling parameters and the steps its
// program executes in order.
type Task struct {
	Name       string     `json:"name" yaml:"name"`
	Count      int        `json:"count,omitempty" yaml:"count,omitempty"`
	Queue      proc.Level `json:"queue,omitempty" yaml:"queue,omitempty"`
	Burst      int        `json:"burst,omitempty" yaml:"burst,omitempty"`
	Confidence int        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Steps      []*Step    `json:"steps" yaml:"steps"`
}

// Step is one program instruction. Exactly one action field is set; Repeat
// runs it more than once.
type Step struct {
	Work   int    `json:"work,omitempty" yaml:"work,omitempty"`
	Sleep  uint64 `json:"sleep,omitempty" yaml:"sleep,omitempty"`
	Yield  bool   `json:"yield,omitempty" yaml:"yield,omitempty"`
	Fork   *Task  `json:"fork,omitempty" yaml:"fork,omitempty"`
	Wait   bool   `json:"wait,omitempty" yaml:"wait,omitempty"`
	Shm    *Shm   `json:"shm,omitempty" yaml:"shm,omitempty"`
	Repeat int    `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

var stepFields = map[string]bool{"work": true, "sleep": true, "yield": true, "fork": true, "wait": true, "shm": true, "repeat": true}

// UnmarshalYAML accepts the scalar shorthands "yield" and "wait" besides
// the mapping form.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	n := (*yml.Node)(node)
	if n.IsScalar() {
		switch n.Value {
		case "yield":
			s.Yield = true
		case "wait":
			s.Wait = true
		default:
			return n.Errorf("unknown step %q", n.Value)
		}
		return nil
	}
	if err := n.Pairs(func(key string, value *yml.Node) error {
		if !stepFields[key] {
			return value.Errorf("unknown step field %q", key)
		}
		return nil
	}); err != nil {
		return err
	}
	type plain Step
	return n.Decode((*plain)(s))
}

func (s *Step) actions() int {
	count := 0
	for _, set := range []bool{s.Work > 0, s.Sleep > 0, s.Yield, s.Fork != nil, s.Wait, s.Shm != nil} {
		if set {
			count++
		}
	}
	return count
}

// Shm runs Work ticks inside the sleep lock of a shared region.
type Shm struct {
	Region int `json:"region" yaml:"region"`
	Work   int `json:"work" yaml:"work"`
}

// DecodeWorkload parses a YAML workload.
func DecodeWorkload(data []byte) (*Workload, error) {
	ret := &Workload{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode workload: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// LoadWorkload reads a YAML workload from URL.
func LoadWorkload(ctx context.Context, URL string) (*Workload, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workload %s: %w", URL, err)
	}
	ret, err := DecodeWorkload([]byte(env.Expand(string(data))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", URL, err)
	}
	return ret, nil
}

// Validate checks every task.
func (w *Workload) Validate() error {
	if len(w.Processes) == 0 {
		return fmt.Errorf("workload %q has no processes", w.Name)
	}
	for i, task := range w.Processes {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("process[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the task and its nested forks.
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name was empty")
	}
	if t.Count < 0 {
		return fmt.Errorf("%s: invalid count %d", t.Name, t.Count)
	}
	if t.Queue != 0 && !t.Queue.Valid() {
		return fmt.Errorf("%s: %w: %d", t.Name, proc.ErrInvalidLevel, t.Queue)
	}
	if t.Confidence < 0 || t.Confidence > 100 {
		return fmt.Errorf("%s: invalid confidence %d", t.Name, t.Confidence)
	}
	for i, step := range t.Steps {
		if step == nil || step.actions() != 1 {
			return fmt.Errorf("%s: step[%d] needs exactly one action", t.Name, i)
		}
		if step.Fork != nil {
			if err := step.Fork.Validate(); err != nil {
				return fmt.Errorf("%s: step[%d]: %w", t.Name, i, err)
			}
		}
	}
	return nil
}

// Replicas returns how many copies of the task to spawn.
func (t *Task) Replicas() int {
	if t.Count <= 0 {
		return 1
	}
	return t.Count
}

// Program compiles the task into a process program.
func (t *Task) Program() processor.Program {
	return func(p *processor.Proc) {
		pid := p.PID()
		if t.Queue != 0 {
			_, _ = p.ChangeQueue(pid, t.Queue)
		}
		if t.Burst > 0 || t.Confidence > 0 {
			_ = p.SetParameters(pid, t.Burst, t.Confidence)
		}
		for _, step := range t.Steps {
			for i := 0; i < step.times(); i++ {
				step.run(p)
			}
		}
	}
}

func (s *Step) times() int {
	if s.Repeat <= 0 {
		return 1
	}
	return s.Repeat
}

func (s *Step) run(p *processor.Proc) {
	switch {
	case s.Work > 0:
		p.Work(s.Work)
	case s.Sleep > 0:
		_ = p.SleepTicks(s.Sleep)
	case s.Yield:
		p.Yield()
	case s.Fork != nil:
		for i := 0; i < s.Fork.Replicas(); i++ {
			_, _ = p.Fork(s.Fork.Name, s.Fork.Program())
		}
	case s.Wait:
		for {
			if _, err := p.Wait(); err != nil {
				return
			}
		}
	case s.Shm != nil:
		if err := p.ShmLock(s.Shm.Region); err != nil {
			return
		}
		p.Work(s.Shm.Work)
		_ = p.ShmUnlock(s.Shm.Region)
	}
}
