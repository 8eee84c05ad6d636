// Package procsched simulates a multi-CPU teaching kernel scheduler.
//
// Processes are goroutines running a Program against a Proc handle that
// exposes system calls (fork, exit, wait, kill, sleep, yield, work and the
// shared-memory calls). Every CPU runs a scheduler loop choosing from three
// queues: round-robin, lottery-admitted shortest job first and first come
// first served, with per-level budgets and aging promotion.
//
// The root package wires the machine with logging, tracing, lifecycle
// events and process listing snapshots:
//
//	srv, _ := procsched.New(procsched.WithConfig(cfg))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	workload, _ := procsched.LoadWorkload(ctx, "workload.yaml")
//	_, _ = rt.Run(ctx, workload)
//	_ = rt.WaitIdle(ctx, time.Minute)
//	_ = rt.Shutdown(ctx)
package procsched
