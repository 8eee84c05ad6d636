// Package policy provides the queue selection policies of the scheduler:
// round-robin for level 1, probabilistic shortest-job-first for level 2 and
// first-come-first-served for level 3, together with the per-CPU level
// budget and the aging promoter.
//
// Policies only pick an entry. They run with the process table lock held and
// never switch contexts; the scheduler loop does that.
package policy
