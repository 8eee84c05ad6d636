package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicks_Advance(t *testing.T) {
	ticks := NewTicks()
	assert.EqualValues(t, 0, ticks.Load())

	next := ticks.Next(0)
	select {
	case <-next:
		t.Fatal("next closed before advance")
	default:
	}

	assert.EqualValues(t, 1, ticks.Advance())
	<-next
	assert.EqualValues(t, 1, ticks.Load())

	select {
	case <-ticks.Next(0):
	default:
		t.Fatal("next should be closed for an elapsed tick")
	}
}
