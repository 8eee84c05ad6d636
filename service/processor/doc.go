// Package processor runs the simulated multiprocessor: one scheduler loop
// per CPU, the clock interrupt, and the process lifecycle operations (fork,
// exit, wait, sleep, wakeup, kill, yield) that programs invoke through Proc.
//
// Every process runs its Program on its own goroutine, but only while its
// table entry is the current entry of a CPU. Control moves between a CPU's
// scheduler loop and a process exclusively through context switches, with
// the process table lock held across each switch.
package processor
