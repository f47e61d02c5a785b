package promotion

import (
	"path/filepath"
	"testing"
	"time"

	"sbsconv/internal/shot"
	"sbsconv/internal/testsupport"
)

// renderedShot writes count source frames spaced by interval with the
// newest at newest, converts all of them beside the source, and returns a
// fully synced shot.
func renderedShot(t *testing.T, root, name string, count int, interval time.Duration, newest time.Time) shot.Shot {
	t.Helper()
	dir := filepath.Join(root, name)
	frames := testsupport.SpacedFrames(t, dir, name, count, interval, newest)
	converted := make([]string, 0, len(frames))
	for _, frame := range frames {
		converted = append(converted, shot.ConvertedFrameName(frame))
	}
	testsupport.WriteFrames(t, shot.BesideDir(dir), converted...)
	return shot.Shot{
		Name:           name,
		SourcePath:     dir,
		FrameCount:     count,
		ConvertedCount: count,
		SyncStatus:     shot.SyncComplete,
		SyncProgress:   1,
		Location:       shot.LocationBeside,
	}
}

func TestEvaluateIdleHeuristic(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	policy := Policy{MinDelay: 30 * time.Second, Multiplier: 3}

	tests := []struct {
		name     string
		interval time.Duration
		idle     time.Duration
		want     shot.PromotionState
		required time.Duration
	}{
		{name: "idle past floor", interval: 5 * time.Second, idle: 100 * time.Second, want: shot.ReadyToMove, required: 30 * time.Second},
		{name: "recent frame", interval: 5 * time.Second, idle: 20 * time.Second, want: shot.Active, required: 30 * time.Second},
		{name: "slow cadence", interval: 60 * time.Second, idle: 100 * time.Second, want: shot.Active, required: 180 * time.Second},
		{name: "slow cadence idle", interval: 60 * time.Second, idle: 200 * time.Second, want: shot.ReadyToMove, required: 180 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := renderedShot(t, t.TempDir(), "sh010", 5, tt.interval, now.Add(-tt.idle))
			decision := policy.Evaluate(s, now)
			if decision.State != tt.want {
				t.Fatalf("expected %s, got %s (%s)", tt.want, decision.State, decision.Reason)
			}
			if decision.Required != tt.required {
				t.Fatalf("expected required %s, got %s", tt.required, decision.Required)
			}
		})
	}
}

func TestEvaluateGates(t *testing.T) {
	now := time.Now()
	policy := Policy{}
	old := now.Add(-time.Hour)

	t.Run("single frame", func(t *testing.T) {
		s := renderedShot(t, t.TempDir(), "sh010", 1, time.Second, old)
		if d := policy.Evaluate(s, now); d.State != shot.Active {
			t.Fatalf("expected Active for single frame, got %s", d.State)
		}
	})

	t.Run("outstanding frames", func(t *testing.T) {
		s := renderedShot(t, t.TempDir(), "sh010", 3, time.Second, old)
		testsupport.WriteFrames(t, s.SourcePath, "sh010.0004.exr")
		testsupport.SetMTime(t, filepath.Join(s.SourcePath, "sh010.0004.exr"), old)
		s.FrameCount = 4
		if d := policy.Evaluate(s, now); d.State != shot.Active || d.Reason != "frames outstanding" {
			t.Fatalf("expected Active with outstanding frames, got %s (%s)", d.State, d.Reason)
		}
	})

	t.Run("sync incomplete", func(t *testing.T) {
		s := renderedShot(t, t.TempDir(), "sh010", 3, time.Second, old)
		s.SyncStatus = shot.SyncInProgress
		if d := policy.Evaluate(s, now); d.State != shot.Active {
			t.Fatalf("expected Active while syncing, got %s", d.State)
		}
	})

	t.Run("already moved", func(t *testing.T) {
		s := shot.Shot{Name: "sh010", FrameCount: 3, ConvertedCount: 3, IsMoved: true, MovedPath: t.TempDir()}
		if d := policy.Evaluate(s, now); d.State != shot.Moved {
			t.Fatalf("expected Moved, got %s", d.State)
		}
	})
}
