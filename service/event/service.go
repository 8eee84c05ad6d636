package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/service/messaging"
	"github.com/viant/procsched/service/messaging/memory"
	"go.uber.org/zap"
)

type Service struct {
	publisher         *Publisher[any]
	listener          *Listener[any]
	typedPublishers   map[reflect.Type]any
	typedListener     map[reflect.Type]any
	mux               *sync.RWMutex
	queueVendor       messaging.Vendor
	memNewQueueConfig func(name string) memory.Config
	logger            *zap.Logger
}

func (s *Service) SetListener(handler func(*Event[any])) {
	if s.listener != nil {
		s.listener.Stop()
	}
	s.listener = NewListener[any](s.publisher, handler, s.logger)
	s.listener.Start()
}

// Close stops every listener.
func (s *Service) Close() {
	if s.listener != nil {
		s.listener.Stop()
		s.listener = nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	for key, listener := range s.typedListener {
		listener.(interface{ Stop() }).Stop()
		delete(s.typedListener, key)
	}
}

func New(queueVendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		queueVendor:     queueVendor,
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]any),
		mux:             &sync.RWMutex{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logging.OrNop(ret.logger)

	switch queueVendor {
	case messaging.Memory:
		if ret.memNewQueueConfig == nil {
			ret.memNewQueueConfig = func(string) memory.Config { return memory.DefaultConfig() }
		}
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", queueVendor)
	}

	queue, err := QueueOf[Event[any]](ret, "any")
	if err != nil {
		return nil, err
	}
	ret.publisher = NewPublisher[any](queue)
	return ret, nil
}

func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.queueVendor {
	case messaging.Memory:
		return memory.NewQueue[T](s.memNewQueueConfig(name)), nil
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.queueVendor)
}

func keyOf[T any]() reflect.Type {
	rType := reflect.TypeOf((*T)(nil)).Elem()
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

func SetListenerOf[T any](s *Service, handler func(*Event[T])) error {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedListener[key]
	s.mux.RUnlock()
	if ok {
		ret.(*Listener[T]).Stop()
	}
	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	listener := NewListener[T](publisher, handler, s.logger)
	s.mux.Lock()
	s.typedListener[key] = listener
	listener.Start()
	s.mux.Unlock()
	return nil
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](s, key.String())
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	publisher.anyQueue = s.publisher.queue
	s.typedPublishers[key] = publisher
	return publisher, nil
}
