package shot

import (
	"fmt"
	"math"
	"strings"
)

// SyncStatus is the derived sync state of a shot.
type SyncStatus int

const (
	SyncNotStarted SyncStatus = iota
	SyncInProgress
	SyncComplete
)

func (s SyncStatus) String() string {
	switch s {
	case SyncInProgress:
		return "InProgress"
	case SyncComplete:
		return "Complete"
	default:
		return "NotStarted"
	}
}

// ParseSyncStatus converts a persisted label back to a SyncStatus.
// Unknown labels map to SyncNotStarted.
func ParseSyncStatus(value string) SyncStatus {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", "")) {
	case "inprogress":
		return SyncInProgress
	case "complete":
		return SyncComplete
	default:
		return SyncNotStarted
	}
}

// Location records where a shot's converted frames were found.
type Location int

const (
	LocationNone Location = iota
	LocationBeside
	LocationLegacy
	LocationDestination
)

func (l Location) String() string {
	switch l {
	case LocationBeside:
		return "beside"
	case LocationLegacy:
		return "legacy"
	case LocationDestination:
		return "destination"
	default:
		return "none"
	}
}

// PromotionState is the position of a shot in the promotion state machine.
type PromotionState int

const (
	Active PromotionState = iota
	ReadyToMove
	Moved
)

func (p PromotionState) String() string {
	switch p {
	case ReadyToMove:
		return "ReadyToMove"
	case Moved:
		return "Moved"
	default:
		return "Active"
	}
}

// Shot is one render unit as seen by the most recent scan.
type Shot struct {
	Name           string
	SourcePath     string
	FrameCount     int
	ConvertedCount int
	SyncStatus     SyncStatus
	SyncProgress   float64
	IsMoved        bool
	// MovedPath is the destination root, set only when IsMoved.
	MovedPath string
	Location  Location
	// Ghost marks a historical entry whose source directory is gone but
	// whose promoted output still exists.
	Ghost bool
}

// Progress returns converted/frames, or 0 when there are no frames.
func (s Shot) Progress() float64 {
	if s.FrameCount <= 0 {
		return 0
	}
	return float64(s.ConvertedCount) / float64(s.FrameCount)
}

// NeedsConversion reports whether source frames remain unconverted.
func (s Shot) NeedsConversion() bool {
	return !s.Ghost && s.FrameCount > s.ConvertedCount
}

// ConvertedDir is where new converted frames for this shot are written.
func (s Shot) ConvertedDir() string {
	if s.IsMoved && s.MovedPath != "" {
		return DestinationDir(s.MovedPath, s.Name)
	}
	return BesideDir(s.SourcePath)
}

// StatusLabel renders the human status used by scan output.
func (s Shot) StatusLabel() string {
	switch {
	case s.FrameCount == 0:
		return "No EXR files"
	case s.ConvertedCount >= s.FrameCount:
		return "Complete"
	case s.ConvertedCount == 0:
		return "Not started"
	default:
		pct := int(math.Floor(s.Progress() * 100))
		return fmt.Sprintf("%d/%d (%d%%)", s.ConvertedCount, s.FrameCount, pct)
	}
}
