package processor

import (
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/file"
	"github.com/viant/procsched/service/vm"
	"go.uber.org/zap"
)

// Option configures Service.
type Option func(*Service)

// WithConfig sets the machine configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithCPUs sets the number of CPUs
func WithCPUs(count int) Option {
	return func(s *Service) {
		s.config.CPUs = count
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMemory sets the address-space manager and the frame allocator
func WithMemory(memory vm.Manager, frames vm.Frames) Option {
	return func(s *Service) {
		s.memory = memory
		s.frames = frames
	}
}

// WithFiles sets the file table
func WithFiles(files file.Table) Option {
	return func(s *Service) {
		s.files = files
	}
}

// WithEvents publishes lifecycle events through the event service
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithBootID overrides the generated boot id
func WithBootID(id string) Option {
	return func(s *Service) {
		s.bootID = id
	}
}
