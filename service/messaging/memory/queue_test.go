package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	PID  int
	Name string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{PID: 3, Name: "sh"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 3, message.T().PID)
	assert.Equal(t, "sh", message.T().Name)

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
	assert.Error(t, message.Nack(nil))
}

func TestQueue_TryPublish(t *testing.T) {
	queue := NewQueue[payload](Config{QueueBuffer: 2})
	assert.NoError(t, queue.TryPublish(&payload{PID: 1}))
	assert.NoError(t, queue.TryPublish(&payload{PID: 2}))
	assert.True(t, errors.Is(queue.TryPublish(&payload{PID: 3}), ErrFull))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, queue.Publish(ctx, &payload{PID: 4}))
}

func TestQueue_Nack(t *testing.T) {
	testCases := []struct {
		description string
		config      Config
		nacks       int
		expectSize  int
		expectDLQ   int
	}{
		{description: "requeued", config: Config{MaxRetries: 2, DeadLetter: true, QueueBuffer: 4}, nacks: 2, expectSize: 1},
		{description: "dead lettered", config: Config{MaxRetries: 1, DeadLetter: true, QueueBuffer: 4}, nacks: 2, expectDLQ: 1},
		{description: "dropped", config: Config{MaxRetries: 0, QueueBuffer: 4}, nacks: 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			queue := NewQueue[payload](testCase.config)
			ctx := context.Background()
			require.NoError(t, queue.Publish(ctx, &payload{PID: 9}))
			for i := 0; i < testCase.nacks; i++ {
				message, err := queue.Consume(ctx)
				require.NoError(t, err)
				require.NoError(t, message.Nack(errors.New("handler failed")))
			}
			assert.Equal(t, testCase.expectSize, queue.Size())
			assert.Equal(t, testCase.expectDLQ, queue.DLQSize())
		})
	}
}

func TestQueue_Concurrent(t *testing.T) {
	queue := NewQueue[payload](Config{QueueBuffer: 8})
	ctx := context.Background()
	const total = 100
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_ = queue.Publish(ctx, &payload{PID: i})
		}
	}()
	seen := 0
	for seen < total {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, seen, message.T().PID)
		_ = message.Ack()
		seen++
	}
	wg.Wait()
}
