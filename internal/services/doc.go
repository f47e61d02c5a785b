// Package services defines shared utilities consumed by the conversion
// scheduler, the promotion state machine, and the workflow manager.
//
// Key responsibilities:
//   - Context helpers that stamp shot names and run identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the error taxonomy the orchestrator reports (fatal pre-flight,
//     per-frame recoverable, promotion failure).
//
// Use these helpers when wiring new components so failure reporting stays
// uniform across the pipeline.
package services
