// Package logging assembles structured slog loggers and formatting helpers used
// across sbsconv.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so conversion and promotion
// code can tag log lines with shot names and run IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
