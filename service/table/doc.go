// Package table implements the process table: a fixed array of entries
// guarded by one spinlock. The scheduler, the policies and every lifecycle
// operation read and mutate entries only while holding Table.Lock.
package table
