package proc

import "errors"

// Sentinel errors returned by lifecycle and table operations. Callers match
// them with errors.Is.
var (
	// ErrNoSlot reports process table exhaustion.
	ErrNoSlot = errors.New("proc: no free process slot")

	// ErrNotFound reports an unknown pid.
	ErrNotFound = errors.New("proc: process not found")

	// ErrNoChildren is returned by wait when the caller has nothing to reap.
	ErrNoChildren = errors.New("proc: no children")

	// ErrKilled is returned by blocking calls interrupted by kill.
	ErrKilled = errors.New("proc: killed")

	// ErrInvalidLevel reports a queue level outside 1..3.
	ErrInvalidLevel = errors.New("proc: invalid queue level")

	// ErrOutOfMemory reports frame or address-space exhaustion.
	ErrOutOfMemory = errors.New("proc: out of memory")
)
