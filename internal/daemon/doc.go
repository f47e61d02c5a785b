// Package daemon runs sbsconv live mode as a long-running process.
//
// It wires configuration, the history ledger, notifications, and the
// workflow manager into a single lifecycle with flock-based locking so
// only one live instance runs per state directory. Individual workflow
// steps live in their own packages; the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
