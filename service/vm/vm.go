// Package vm declares the virtual-memory collaborators the scheduler relies
// on: address spaces and physical frames. The scheduler treats both as
// opaque handles.
package vm

// PageSize is the size of one frame and one mapping.
const PageSize = 4096

// Addr is a user virtual address.
type Addr uintptr

// Space identifies an address space; zero means none.
type Space uint64

// Frame identifies a physical frame; zero means none.
type Frame uint64

// Manager creates and maintains address spaces.
type Manager interface {
	// Create returns a fresh empty address space.
	Create() (Space, error)
	// Duplicate copies src, returning a new space of the same size.
	Duplicate(src Space) (Space, error)
	// Resize grows or shrinks s by delta bytes and returns the new size.
	Resize(s Space, delta int) (int, error)
	// Destroy releases s and all its private memory.
	Destroy(s Space)
	// Map installs f at addr in s.
	Map(s Space, addr Addr, f Frame) error
	// Unmap removes the mapping at addr, returning the frame it pointed to.
	Unmap(s Space, addr Addr) (Frame, bool)
	// Size returns the size of s in bytes.
	Size(s Space) int
}

// Frames allocates physical frames.
type Frames interface {
	Alloc() (Frame, error)
	Free(f Frame)
	Zero(f Frame)
	Read(f Frame, offset int, p []byte) (int, error)
	Write(f Frame, offset int, p []byte) (int, error)
}
