package timer

import (
	"context"
	"sync"
	"time"

	"github.com/viant/procsched/internal/logging"
	"go.uber.org/zap"
)

// Config represents timer service configuration
type Config struct {
	// Interval is the wall-clock length of one tick; zero disables the ticker
	// and leaves ticks to manual Tick calls.
	Interval time.Duration
}

// DefaultConfig returns the default timer configuration
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Millisecond,
	}
}

// Handler services one clock interrupt. It returns false once the machine
// halted.
type Handler func() bool

// Service raises clock interrupts.
type Service struct {
	config     Config
	handler    Handler
	logger     *zap.Logger
	mux        sync.Mutex
	shutdownCh chan struct{}
	once       sync.Once
}

// New creates a timer service
func New(handler Handler, config Config, logger *zap.Logger) *Service {
	return &Service{
		config:     config,
		handler:    handler,
		logger:     logging.OrNop(logger).Named(logging.Timer),
		shutdownCh: make(chan struct{}),
	}
}

// Start runs the ticker loop until ctx is done, Shutdown is called or the
// handler reports a halt.
func (s *Service) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		}
	}
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	s.logger.Debug("started", zap.Duration("interval", s.config.Interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if !s.Tick() {
				return nil
			}
		}
	}
}

// Tick raises one clock interrupt. Concurrent calls are serialized.
func (s *Service) Tick() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.handler()
}

// Shutdown stops the ticker loop.
func (s *Service) Shutdown() {
	s.once.Do(func() {
		close(s.shutdownCh)
	})
}
