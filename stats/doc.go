// Package stats keeps aggregated scheduler counters for one boot of the
// simulated machine: context switches, idle polls, forks, exits, reaps,
// kills, promotions and cross-level yields. Components update it through
// Delta values; readers take snapshots.
package stats
