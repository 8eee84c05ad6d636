package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/vm"
)

func TestMemory_Spaces(t *testing.T) {
	m := New()
	s, err := m.Create()
	require.NoError(t, err)
	size, err := m.Resize(s, 3*vm.PageSize)
	require.NoError(t, err)
	assert.Equal(t, 3*vm.PageSize, size)

	dup, err := m.Duplicate(s)
	require.NoError(t, err)
	assert.Equal(t, size, m.Size(dup))
	assert.Equal(t, 2, m.Spaces())

	m.FailNextDuplicate(1)
	_, err = m.Duplicate(s)
	assert.True(t, errors.Is(err, proc.ErrOutOfMemory))
	_, err = m.Duplicate(s)
	assert.NoError(t, err)

	_, err = m.Resize(s, -10*vm.PageSize)
	assert.Error(t, err)

	m.Destroy(s)
	m.Destroy(dup)
	assert.Equal(t, 1, m.Spaces())
}

func TestMemory_Frames(t *testing.T) {
	testCases := []struct {
		description string
		maxFrames   int
		failAlloc   int
		allocs      int
		expectOK    int
	}{
		{description: "unbounded", allocs: 4, expectOK: 4},
		{description: "bounded", maxFrames: 2, allocs: 4, expectOK: 2},
		{description: "injected failure", failAlloc: 1, allocs: 3, expectOK: 2},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			m := New(WithMaxFrames(testCase.maxFrames))
			m.FailNextAlloc(testCase.failAlloc)
			ok := 0
			for i := 0; i < testCase.allocs; i++ {
				if _, err := m.Alloc(); err == nil {
					ok++
				}
			}
			assert.Equal(t, testCase.expectOK, ok)
			assert.Equal(t, testCase.expectOK, m.Frames())
		})
	}
}

func TestMemory_MapReadWrite(t *testing.T) {
	m := New()
	s, _ := m.Create()
	f, err := m.Alloc()
	require.NoError(t, err)

	_, err = m.Write(f, 10, []byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = m.Read(f, 10, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	m.Zero(f)
	_, _ = m.Read(f, 10, buf)
	assert.Equal(t, make([]byte, 5), buf)

	require.NoError(t, m.Map(s, 0x9F000, f))
	assert.Error(t, m.Map(s, 0x9F000, f))
	mapped, ok := m.Mapping(s, 0x9F000)
	assert.True(t, ok)
	assert.Equal(t, f, mapped)

	unmapped, ok := m.Unmap(s, 0x9F000)
	assert.True(t, ok)
	assert.Equal(t, f, unmapped)
	_, ok = m.Unmap(s, 0x9F000)
	assert.False(t, ok)

	m.Free(f)
	assert.Equal(t, 0, m.Frames())
	_, err = m.Read(f, 0, buf)
	assert.Error(t, err)
}
