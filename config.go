package procsched

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/procsched/internal/env"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/processor"
	"github.com/viant/procsched/service/procdump"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the machine configuration. It
// can be populated from YAML, JSON, environment variables or flags. Zero
// fields inherit the package defaults.
type Config struct {
	Machine   MachineConfig   `json:"machine" yaml:"machine"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Shm       ShmConfig       `json:"shm" yaml:"shm"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
	Dump      DumpConfig      `json:"dump" yaml:"dump"`
}

type MachineConfig struct {
	CPUs         int           `json:"cpus" yaml:"cpus"`
	Procs        int           `json:"procs" yaml:"procs"`
	TickInterval time.Duration `json:"tickInterval" yaml:"tickInterval"`
	EventBuffer  int           `json:"eventBuffer" yaml:"eventBuffer"`
}

type SchedulerConfig struct {
	Seed              uint32        `json:"seed" yaml:"seed"`
	AgingThreshold    int           `json:"agingThreshold" yaml:"agingThreshold"`
	Quantum           int           `json:"quantum" yaml:"quantum"`
	Budget            policy.Limits `json:"budget" yaml:"budget"`
	DefaultConfidence int           `json:"defaultConfidence" yaml:"defaultConfidence"`
	DefaultBurst      int           `json:"defaultBurst" yaml:"defaultBurst"`
}

type ShmConfig struct {
	Regions int `json:"regions" yaml:"regions"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Service string `json:"service" yaml:"service"`
	Version string `json:"version" yaml:"version"`
	Output  string `json:"output" yaml:"output"`
}

// DumpConfig enables process listing snapshots.
type DumpConfig struct {
	URL    string `json:"url" yaml:"url"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns a Config populated with the machine defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	machine := processor.DefaultConfig()
	return &Config{
		Machine: MachineConfig{
			CPUs:         machine.CPUs,
			Procs:        machine.Procs,
			TickInterval: 10 * time.Millisecond,
			EventBuffer:  machine.EventBuffer,
		},
		Scheduler: SchedulerConfig{
			Seed:              machine.Seed,
			AgingThreshold:    machine.AgingThreshold,
			Quantum:           machine.Quantum,
			Budget:            machine.Budget,
			DefaultConfidence: machine.DefaultConfidence,
			DefaultBurst:      machine.DefaultBurst,
		},
		Shm: ShmConfig{Regions: machine.ShmRegions},
		Log: LogConfig{Level: "info", Format: "console"},
		Tracing: TracingConfig{
			Service: "procsched",
			Version: Version,
		},
		Dump: DumpConfig{Format: string(procdump.JSON)},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	machine := c.Processor()
	if err := machine.Validate(); err != nil {
		return err
	}
	if _, err := procdump.ParseFormat(c.Dump.Format); err != nil {
		return fmt.Errorf("dump.format: %w", err)
	}
	return nil
}

// Processor returns the machine configuration.
func (c *Config) Processor() processor.Config {
	return processor.Config{
		CPUs:              c.Machine.CPUs,
		Procs:             c.Machine.Procs,
		Quantum:           c.Scheduler.Quantum,
		AgingThreshold:    c.Scheduler.AgingThreshold,
		Seed:              c.Scheduler.Seed,
		Budget:            c.Scheduler.Budget,
		DefaultConfidence: c.Scheduler.DefaultConfidence,
		DefaultBurst:      c.Scheduler.DefaultBurst,
		ShmRegions:        c.Shm.Regions,
		TickInterval:      c.Machine.TickInterval,
		EventBuffer:       c.Machine.EventBuffer,
	}
}

// LoadConfig reads a YAML configuration from URL on top of the defaults.
// ${env.KEY} references are substituted before decoding.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(env.Expand(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", URL, err)
	}
	return ret, nil
}
