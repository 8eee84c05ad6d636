package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestService_Tick(t *testing.T) {
	var count atomic.Int32
	srv := New(func() bool {
		count.Add(1)
		return true
	}, Config{}, nil)
	for i := 0; i < 5; i++ {
		assert.True(t, srv.Tick())
	}
	assert.EqualValues(t, 5, count.Load())
}

func TestService_Start(t *testing.T) {
	testCases := []struct {
		description string
		interval    time.Duration
		haltAfter   int32
		shutdown    bool
	}{
		{description: "manual mode waits for shutdown", shutdown: true},
		{description: "ticker stops on halt", interval: time.Millisecond, haltAfter: 3},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			var count atomic.Int32
			srv := New(func() bool {
				return count.Add(1) < testCase.haltAfter
			}, Config{Interval: testCase.interval}, nil)
			if testCase.shutdown {
				srv.Shutdown()
				srv.Shutdown()
			}
			assert.NoError(t, srv.Start(context.Background()))
			if testCase.haltAfter > 0 {
				assert.Equal(t, testCase.haltAfter, count.Load())
			}
		})
	}
}

func TestService_StartCanceled(t *testing.T) {
	srv := New(func() bool { return true }, Config{Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, srv.Start(ctx), context.Canceled)
}
