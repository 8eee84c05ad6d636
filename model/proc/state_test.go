package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	testCases := []struct {
		level   Level
		valid   bool
		promote Level
		next    Level
	}{
		{level: RoundRobin, valid: true, promote: RoundRobin, next: SJF},
		{level: SJF, valid: true, promote: RoundRobin, next: FCFS},
		{level: FCFS, valid: true, promote: SJF, next: RoundRobin},
		{level: 0, valid: false, promote: RoundRobin, next: RoundRobin + 0},
	}
	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.level.Valid())
			assert.Equal(t, tc.promote, tc.level.Promote())
			if tc.valid {
				assert.Equal(t, tc.next, tc.level.Next())
			}
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "zombie", Zombie.String())
	assert.Equal(t, "???", State(42).String())
	text, err := Sleeping.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "sleeping", string(text))

	var decoded State
	assert.NoError(t, decoded.UnmarshalText([]byte("zombie")))
	assert.Equal(t, Zombie, decoded)
	assert.Error(t, decoded.UnmarshalText([]byte("lost")))
}

func TestSyscall_String(t *testing.T) {
	assert.Equal(t, "fork", SysFork.String())
	assert.Equal(t, "unknown", Syscall(0).String())
}
