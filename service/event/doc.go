// Package event carries lifecycle notifications (fork, exit, reap, kill,
// promotion, queue change) from the scheduler to listeners over typed
// messaging queues.
package event
