package promotion

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"sbsconv/internal/framediff"
	"sbsconv/internal/shot"
)

// Policy holds the idle-render heuristic parameters.
type Policy struct {
	MinDelay   time.Duration
	Multiplier float64
}

// Decision is the evaluated promotion state of a shot.
type Decision struct {
	State    shot.PromotionState
	Reason   string
	Newest   time.Time
	Required time.Duration
	Idle     time.Duration
}

// Ready reports whether the shot may be moved now.
func (d Decision) Ready() bool {
	return d.State == shot.ReadyToMove
}

// Evaluate classifies s at now. ReadyToMove requires no outstanding
// frames, a completed sync, and an idle source directory.
func (p Policy) Evaluate(s shot.Shot, now time.Time) Decision {
	if s.IsMoved || s.Ghost {
		return Decision{State: shot.Moved, Reason: "already moved"}
	}
	if s.FrameCount == 0 {
		return Decision{State: shot.Active, Reason: "no frames"}
	}
	if outstanding := framediff.OutstandingIn(s.SourcePath, s.ConvertedDir()); len(outstanding) > 0 {
		return Decision{State: shot.Active, Reason: "frames outstanding"}
	}
	if s.SyncStatus != shot.SyncComplete {
		return Decision{State: shot.Active, Reason: "sync " + s.SyncStatus.String()}
	}

	times := frameTimes(s.SourcePath)
	if len(times) < 2 {
		return Decision{State: shot.Active, Reason: "too few frames to judge render cadence"}
	}
	newest := times[len(times)-1]
	mean := times[len(times)-1].Sub(times[0]) / time.Duration(len(times)-1)
	required := time.Duration(float64(mean) * p.Multiplier)
	if required < p.MinDelay {
		required = p.MinDelay
	}
	idle := now.Sub(newest)
	d := Decision{Newest: newest, Required: required, Idle: idle}
	if idle > required {
		d.State = shot.ReadyToMove
		d.Reason = "idle"
		return d
	}
	d.State = shot.Active
	d.Reason = "still rendering"
	return d
}

// frameTimes returns source frame modification times, oldest first.
func frameTimes(dir string) []time.Time {
	frames := framediff.SourceFrames(dir)
	times := make([]time.Time, 0, len(frames))
	for _, frame := range frames {
		info, err := os.Stat(filepath.Join(dir, frame))
		if err != nil {
			continue
		}
		times = append(times, info.ModTime())
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
