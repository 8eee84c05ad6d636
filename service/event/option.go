package event

import (
	"github.com/viant/procsched/service/messaging/memory"
	"go.uber.org/zap"
)

type Option func(s *Service)

// WithNewMemoryQueueConfig  sets the new memory queue configuration
func WithNewMemoryQueueConfig(newQueue func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newQueue
	}
}

// WithLogger sets the listener logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
