// Package lock provides the kernel locking primitives: the holder-checked
// Spinlock guarding shared tables, the ReentrantLock that its owner may
// take recursively, and the SleepLock whose waiters block through the
// scheduler's sleep/wakeup.
package lock
