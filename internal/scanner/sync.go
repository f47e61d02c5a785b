package scanner

import "sbsconv/internal/shot"

// SyncOracle decides the sync status of a scanned shot. The default policy
// derives it from conversion progress; a real downstream sync check can be
// plugged in without touching the scanner.
type SyncOracle interface {
	Sync(s shot.Shot) (shot.SyncStatus, float64)
}

// ProgressSync treats conversion progress as sync progress: fully
// converted is Complete, partially converted is InProgress.
type ProgressSync struct{}

// Sync implements SyncOracle.
func (ProgressSync) Sync(s shot.Shot) (shot.SyncStatus, float64) {
	progress := s.Progress()
	switch {
	case progress >= 1:
		return shot.SyncComplete, 1
	case progress > 0:
		return shot.SyncInProgress, progress
	default:
		return shot.SyncNotStarted, 0
	}
}

// SyncFunc adapts a function to SyncOracle.
type SyncFunc func(s shot.Shot) (shot.SyncStatus, float64)

// Sync implements SyncOracle.
func (f SyncFunc) Sync(s shot.Shot) (shot.SyncStatus, float64) {
	return f(s)
}
