// Package proc defines the data model shared by the process table, the
// selection policies and the scheduler: lifecycle states, queue levels,
// generation-checked handles, the diagnostic row and sentinel errors.
package proc
