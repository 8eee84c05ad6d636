package event

import (
	"context"

	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/service/messaging"
)

// Publisher sends events of one payload type, mirroring them to the
// catch-all stream.
type Publisher[T any] struct {
	queue    messaging.Queue[Event[T]]
	anyQueue messaging.Queue[Event[any]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = clock.Now()
	if p.anyQueue != nil {
		mirror := &Event[any]{
			Context:   event.Context,
			CreatedAt: event.CreatedAt,
			Metadata:  event.Metadata,
			Data:      event.Data,
		}
		// the catch-all stream never holds back typed consumers
		if q, ok := p.anyQueue.(interface{ TryPublish(*Event[any]) error }); ok {
			_ = q.TryPublish(mirror)
		} else if err := p.anyQueue.Publish(ctx, mirror); err != nil {
			return err
		}
	}
	return p.queue.Publish(ctx, event)
}

func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
