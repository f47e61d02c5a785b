// Package promotion decides when a fully converted shot has stopped
// receiving frames and moves its converted directory into the destination
// root.
//
// A shot moves through Active, ReadyToMove, and Moved. Evaluate is pure
// apart from reading source frame modification times; Promote performs
// the move and records it in the status store. The idle rule is a policy:
// a shot is idle once the time since its newest frame exceeds
// max(MinDelay, mean frame interval * Multiplier).
package promotion
