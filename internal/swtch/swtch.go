// Package swtch implements saved execution contexts. A context is a
// goroutine parked on its resume channel; switching hands the CPU to the
// target context and parks the caller until something switches back.
//
// Contexts are switched only while the process table lock is held, which
// serializes every access to their bookkeeping.
package swtch

import "github.com/viant/procsched/internal/fatal"

// Context is one saved execution context.
type Context struct {
	name    string
	resume  chan struct{}
	entry   func()
	started bool
	halt    <-chan struct{}
}

// New primes a context whose goroutine starts at entry on the first switch
// into it.
func New(name string, entry func(), halt <-chan struct{}) *Context {
	return &Context{name: name, resume: make(chan struct{}, 1), entry: entry, halt: halt}
}

// Current returns a context for the calling, already running goroutine.
func Current(name string, halt <-chan struct{}) *Context {
	return &Context{name: name, resume: make(chan struct{}, 1), started: true, halt: halt}
}

// Name returns the context name.
func (c *Context) Name() string {
	return c.name
}

// Started reports whether the context goroutine has been launched.
func (c *Context) Started() bool {
	return c.started
}

// Resume lets the context run.
func (c *Context) Resume() {
	if !c.started {
		c.started = true
		go c.entry()
		return
	}
	select {
	case c.resume <- struct{}{}:
	default:
		fatal.Panicf("swtch %s: already resumed", c.name)
	}
}

// Park blocks the calling goroutine until the context is resumed. It
// returns false when the machine halts first.
func (c *Context) Park() bool {
	select {
	case <-c.resume:
		return true
	case <-c.halt:
		return false
	}
}

// Switch resumes to and parks the caller as from. It returns false when the
// machine halted while the caller was parked.
func Switch(from, to *Context) bool {
	to.Resume()
	return from.Park()
}
