// Package workflow is the orchestrator context for sbsconv.
//
// A Manager owns the source and destination roots, the scanner, the
// conversion scheduler, the promoter, and the event bus. CLI commands call
// Scan, Convert, and Promote directly; live mode runs the same pass on a
// ticker from a single driver goroutine. Scan, conversion, and promotion
// are serialized: a call made while another is in progress returns
// ErrBusy instead of queueing.
//
// Conversion workers report through the scheduler's event channel; the
// manager drains it on the calling goroutine and fans every event out to
// the bus subscribers (log sink, history recorder, notifications, CLI
// renderer).
package workflow
