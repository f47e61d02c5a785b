// Package shot models render shots and the on-disk naming contract that
// marks converted output.
//
// A shot is one immediate subdirectory of the source root holding EXR
// frames. Converted frames carry the _SBS tag and live in a sibling
// <shot>_SBS directory, in a <shot>_SBS directory under the destination
// root once promoted, or (legacy layout) beside the source frames. Callers
// work with the Location, SyncStatus and PromotionState enums instead of
// matching suffixes themselves.
package shot
