package procsched

import (
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/file"
	"github.com/viant/procsched/service/procdump"
	"github.com/viant/procsched/service/vm"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Option configures Service.
type Option func(s *Service)

// WithConfig sets the configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger; by default one is built from Config.Log
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMemory sets the address-space manager and frame allocator
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

// WithEventService sets the lifecycle event service
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithDumpService sets the process listing store
func WithDumpService(service *procdump.Service) Option {
	return func(s *Service) {
		s.dumps = service
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the file. The
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{Enabled: true, Service: serviceName, Version: serviceVersion, Output: outputFile}
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// SpanExporter, for example OTLP or an in-memory test exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.config.Tracing.Enabled = true
		s.config.Tracing.Service = serviceName
		s.config.Tracing.Version = serviceVersion
		s.exporter = exporter
	}
}
