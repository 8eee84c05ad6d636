// Package timer drives the clock interrupt of the simulated machine, either
// from a ticker or manually through Tick.
package timer
