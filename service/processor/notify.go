package processor

import (
	"context"
	"time"

	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/stats"
	"go.uber.org/zap"
)

const flushTimeout = time.Second

// notify queues a lifecycle event without blocking; it may run inside a
// critical section. Events are dropped when the buffer is full.
func (s *Service) notify(kind event.Type, tick uint64, data event.Lifecycle) {
	if s.eventCh == nil {
		return
	}
	evt := event.NewEvent(&event.Context{BootID: s.bootID, PID: data.PID, EventType: kind, Tick: tick}, data)
	select {
	case s.eventCh <- evt:
	default:
		s.stats.Update(stats.Delta{DroppedEvents: 1})
	}
}

// dispatch publishes queued events until ctx is done, then flushes what is
// left in the buffer.
func (s *Service) dispatch(ctx context.Context) error {
	publisher, err := event.PublisherOf[event.Lifecycle](s.events)
	if err != nil {
		return err
	}
	publish := func(ctx context.Context, evt *event.Event[event.Lifecycle]) {
		if err := publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", string(evt.Context.EventType)), zap.Error(err))
		}
	}
	for {
		select {
		case evt := <-s.eventCh:
			publish(ctx, evt)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			for {
				select {
				case evt := <-s.eventCh:
					publish(flushCtx, evt)
				default:
					return nil
				}
			}
		}
	}
}
