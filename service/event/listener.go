package event

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), logger *zap.Logger) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Stop cancels the consumer loop and waits for it to finish.
func (l *Listener[T]) Stop() {
	l.cancel()
	<-l.done
}

func (l *Listener[T]) Start() {
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				l.logger.Warn("consume event", zap.Error(err))
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}
