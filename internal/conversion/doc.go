// Package conversion schedules per-frame converter jobs for a set of shots.
//
// A run is planned up front from the frame diff of every selected shot,
// then executed on goroutines bounded by a weighted semaphore. Progress is
// reported exclusively through the returned event channel, which closes
// after the final RunFinished event. A failed frame is reported and
// counted but never cancels its siblings; only a converter that cannot be
// resolved at pre-flight aborts a run.
package conversion
