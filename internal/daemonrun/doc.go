// Package daemonrun hosts the live-mode process runtime shared by
// `sbsconv live` and the sbsconvd binary: run logs and retention, the pid
// file, the history ledger, ntfy delivery, and the flock-guarded daemon.
package daemonrun
