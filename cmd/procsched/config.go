package main

import (
	"errors"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/viper"
	"github.com/viant/procsched"
)

const envPrefix = "PROCSCHED"

// loadConfig merges defaults, the optional config file, PROCSCHED_*
// environment variables and bound flags.
func loadConfig(v *viper.Viper, cfgFile string) (*procsched.Config, error) {
	defaults := procsched.DefaultConfig()
	if cores, err := cpu.Counts(false); err == nil && cores > 0 {
		defaults.Machine.CPUs = cores
	}
	setDefaults(v, defaults)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("procsched")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	cfg := &procsched.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c *procsched.Config) {
	v.SetDefault("machine.cpus", c.Machine.CPUs)
	v.SetDefault("machine.procs", c.Machine.Procs)
	v.SetDefault("machine.tickInterval", c.Machine.TickInterval)
	v.SetDefault("machine.eventBuffer", c.Machine.EventBuffer)
	v.SetDefault("scheduler.seed", c.Scheduler.Seed)
	v.SetDefault("scheduler.agingThreshold", c.Scheduler.AgingThreshold)
	v.SetDefault("scheduler.quantum", c.Scheduler.Quantum)
	v.SetDefault("scheduler.budget.roundRobin", c.Scheduler.Budget.RoundRobin)
	v.SetDefault("scheduler.budget.sjf", c.Scheduler.Budget.SJF)
	v.SetDefault("scheduler.budget.fcfs", c.Scheduler.Budget.FCFS)
	v.SetDefault("scheduler.defaultConfidence", c.Scheduler.DefaultConfidence)
	v.SetDefault("scheduler.defaultBurst", c.Scheduler.DefaultBurst)
	v.SetDefault("shm.regions", c.Shm.Regions)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.service", c.Tracing.Service)
	v.SetDefault("tracing.version", c.Tracing.Version)
	v.SetDefault("tracing.output", c.Tracing.Output)
	v.SetDefault("dump.url", c.Dump.URL)
	v.SetDefault("dump.format", c.Dump.Format)
}
