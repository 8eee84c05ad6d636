// Package messaging defines the generic queue abstraction that carries
// lifecycle events from the scheduler to their listeners.
package messaging
