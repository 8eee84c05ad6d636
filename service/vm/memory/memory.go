// Package memory is an in-process vm implementation with fault injection
// and live counters, used by the simulated machine and its tests.
package memory

import (
	"fmt"
	"sync"

	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/vm"
)

type space struct {
	size     int
	mappings map[vm.Addr]vm.Frame
}

// Memory implements vm.Manager and vm.Frames.
type Memory struct {
	mux           sync.Mutex
	nextSpace     vm.Space
	nextFrame     vm.Frame
	spaces        map[vm.Space]*space
	frames        map[vm.Frame][]byte
	maxFrames     int
	failDuplicate int
	failAlloc     int
}

// Option configures Memory.
type Option func(m *Memory)

// WithMaxFrames bounds the number of live frames; zero means unbounded.
func WithMaxFrames(n int) Option {
	return func(m *Memory) {
		m.maxFrames = n
	}
}

// New creates an empty memory.
func New(opts ...Option) *Memory {
	ret := &Memory{
		spaces: make(map[vm.Space]*space),
		frames: make(map[vm.Frame][]byte),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// FailNextDuplicate makes the next n Duplicate calls fail.
func (m *Memory) FailNextDuplicate(n int) {
	m.mux.Lock()
	m.failDuplicate = n
	m.mux.Unlock()
}

// FailNextAlloc makes the next n frame allocations fail.
func (m *Memory) FailNextAlloc(n int) {
	m.mux.Lock()
	m.failAlloc = n
	m.mux.Unlock()
}

// Spaces returns the number of live address spaces.
func (m *Memory) Spaces() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	return len(m.spaces)
}

// Frames returns the number of live frames.
func (m *Memory) Frames() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	return len(m.frames)
}

// Mapping returns the frame mapped at addr in s.
func (m *Memory) Mapping(s vm.Space, addr vm.Addr) (vm.Frame, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	sp, ok := m.spaces[s]
	if !ok {
		return 0, false
	}
	f, ok := sp.mappings[addr]
	return f, ok
}

func (m *Memory) Create() (vm.Space, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.nextSpace++
	m.spaces[m.nextSpace] = &space{mappings: make(map[vm.Addr]vm.Frame)}
	return m.nextSpace, nil
}

func (m *Memory) Duplicate(src vm.Space) (vm.Space, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.failDuplicate > 0 {
		m.failDuplicate--
		return 0, fmt.Errorf("duplicate space %d: %w", src, proc.ErrOutOfMemory)
	}
	from, ok := m.spaces[src]
	if !ok {
		return 0, fmt.Errorf("duplicate space %d: unknown space", src)
	}
	m.nextSpace++
	m.spaces[m.nextSpace] = &space{size: from.size, mappings: make(map[vm.Addr]vm.Frame)}
	return m.nextSpace, nil
}

func (m *Memory) Resize(s vm.Space, delta int) (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	sp, ok := m.spaces[s]
	if !ok {
		return 0, fmt.Errorf("resize space %d: unknown space", s)
	}
	if sp.size+delta < 0 {
		return sp.size, fmt.Errorf("resize space %d: negative size", s)
	}
	sp.size += delta
	return sp.size, nil
}

func (m *Memory) Destroy(s vm.Space) {
	m.mux.Lock()
	defer m.mux.Unlock()
	delete(m.spaces, s)
}

func (m *Memory) Map(s vm.Space, addr vm.Addr, f vm.Frame) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	sp, ok := m.spaces[s]
	if !ok {
		return fmt.Errorf("map %#x: unknown space %d", addr, s)
	}
	if _, ok := m.frames[f]; !ok {
		return fmt.Errorf("map %#x: unknown frame %d", addr, f)
	}
	if _, ok := sp.mappings[addr]; ok {
		return fmt.Errorf("map %#x: remap", addr)
	}
	sp.mappings[addr] = f
	return nil
}

func (m *Memory) Unmap(s vm.Space, addr vm.Addr) (vm.Frame, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	sp, ok := m.spaces[s]
	if !ok {
		return 0, false
	}
	f, ok := sp.mappings[addr]
	delete(sp.mappings, addr)
	return f, ok
}

func (m *Memory) Size(s vm.Space) int {
	m.mux.Lock()
	defer m.mux.Unlock()
	if sp, ok := m.spaces[s]; ok {
		return sp.size
	}
	return 0
}

func (m *Memory) Alloc() (vm.Frame, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.failAlloc > 0 {
		m.failAlloc--
		return 0, proc.ErrOutOfMemory
	}
	if m.maxFrames > 0 && len(m.frames) >= m.maxFrames {
		return 0, proc.ErrOutOfMemory
	}
	m.nextFrame++
	m.frames[m.nextFrame] = make([]byte, vm.PageSize)
	return m.nextFrame, nil
}

func (m *Memory) Free(f vm.Frame) {
	m.mux.Lock()
	defer m.mux.Unlock()
	delete(m.frames, f)
}

func (m *Memory) Zero(f vm.Frame) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if data, ok := m.frames[f]; ok {
		for i := range data {
			data[i] = 0
		}
	}
}

func (m *Memory) Read(f vm.Frame, offset int, p []byte) (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	data, ok := m.frames[f]
	if !ok {
		return 0, fmt.Errorf("read frame %d: unknown frame", f)
	}
	if offset < 0 || offset > len(data) {
		return 0, fmt.Errorf("read frame %d: offset %d out of range", f, offset)
	}
	return copy(p, data[offset:]), nil
}

func (m *Memory) Write(f vm.Frame, offset int, p []byte) (int, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	data, ok := m.frames[f]
	if !ok {
		return 0, fmt.Errorf("write frame %d: unknown frame", f)
	}
	if offset < 0 || offset > len(data) {
		return 0, fmt.Errorf("write frame %d: offset %d out of range", f, offset)
	}
	return copy(data[offset:], p), nil
}

var (
	_ vm.Manager = (*Memory)(nil)
	_ vm.Frames  = (*Memory)(nil)
)
