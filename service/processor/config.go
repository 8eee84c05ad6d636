package processor

import (
	"fmt"
	"time"

	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/table"
)

// Config represents the simulated machine configuration
type Config struct {
	CPUs              int
	Procs             int
	Quantum           int
	AgingThreshold    int
	Seed              uint32
	Budget            policy.Limits
	DefaultConfidence int
	DefaultBurst      int
	ShmRegions        int
	TickInterval      time.Duration
	EventBuffer       int
}

// DefaultConfig returns the default machine configuration
func DefaultConfig() Config {
	defaults := table.DefaultDefaults()
	return Config{
		CPUs:              2,
		Procs:             table.DefaultSize,
		Quantum:           1,
		AgingThreshold:    policy.DefaultAgingThreshold,
		Seed:              1,
		Budget:            policy.DefaultLimits(),
		DefaultConfidence: defaults.Confidence,
		DefaultBurst:      defaults.Burst,
		ShmRegions:        16,
		EventBuffer:       1024,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch {
	case c.CPUs <= 0:
		return fmt.Errorf("invalid cpu count: %d", c.CPUs)
	case c.Procs <= 0:
		return fmt.Errorf("invalid process table size: %d", c.Procs)
	case c.Quantum <= 0:
		return fmt.Errorf("invalid quantum: %d", c.Quantum)
	case c.AgingThreshold <= 0:
		return fmt.Errorf("invalid aging threshold: %d", c.AgingThreshold)
	case c.Budget.RoundRobin <= 0 || c.Budget.SJF <= 0 || c.Budget.FCFS <= 0:
		return fmt.Errorf("invalid level budget: %+v", c.Budget)
	case c.DefaultConfidence < 0 || c.DefaultConfidence > 100:
		return fmt.Errorf("invalid default confidence: %d", c.DefaultConfidence)
	case c.ShmRegions <= 0:
		return fmt.Errorf("invalid shared memory region count: %d", c.ShmRegions)
	case c.TickInterval < 0:
		return fmt.Errorf("invalid tick interval: %s", c.TickInterval)
	}
	return nil
}
