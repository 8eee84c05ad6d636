package procsched

import (
	"context"
	"fmt"

	"github.com/viant/procsched/internal/fatal"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/file"
	"github.com/viant/procsched/service/messaging"
	"github.com/viant/procsched/service/processor"
	"github.com/viant/procsched/service/procdump"
	"github.com/viant/procsched/service/vm"
	"github.com/viant/procsched/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Version is the release of this module.
const Version = "0.1.0"

// Service wires the simulated machine with its collaborators.
type Service struct {
	config   *Config
	logger   *zap.Logger
	memory   vm.Manager
	frames   vm.Frames
	files    file.Table
	events   *event.Service
	dumps    *procdump.Service
	exporter sdktrace.SpanExporter
	runtime  *Runtime
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	machineOptions := []processor.Option{
		processor.WithConfig(s.config.Processor()),
		processor.WithLogger(s.logger),
		processor.WithEvents(s.events),
	}
	if s.memory != nil && s.frames != nil {
		machineOptions = append(machineOptions, processor.WithMemory(s.memory, s.frames))
	}
	if s.files != nil {
		machineOptions = append(machineOptions, processor.WithFiles(s.files))
	}
	machine, err := processor.New(machineOptions...)
	if err != nil {
		return err
	}
	s.runtime = &Runtime{
		machine: machine,
		events:  s.events,
		dumps:   s.dumps,
		logger:  s.logger,
	}
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if s.logger == nil {
		logger, err := logging.New(s.config.Log.Level, s.config.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		s.logger = logger
	}
	fatal.SetLogger(s.logger)

	if tc := s.config.Tracing; tc.Enabled {
		var err error
		if s.exporter != nil {
			err = tracing.InitWithExporter(tc.Service, tc.Version, s.exporter)
		} else {
			err = tracing.Init(tc.Service, tc.Version, tc.Output)
		}
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}

	if s.events == nil {
		events, err := event.New(messaging.Memory, event.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.events = events
	}

	if s.dumps == nil && s.config.Dump.URL != "" {
		format, _ := procdump.ParseFormat(s.config.Dump.Format)
		dumps, err := procdump.New(context.Background(), s.config.Dump.URL, procdump.WithFormat(format))
		if err != nil {
			return err
		}
		s.dumps = dumps
	}
	return nil
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Logger returns the service logger.
func (s *Service) Logger() *zap.Logger {
	return s.logger
}

// Runtime returns the machine runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates a service.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
