// Package events defines the typed domain events emitted by conversion
// runs and promotion passes, plus a small fan-out bus for subscribers.
package events

import (
	"fmt"
	"time"
)

// Kind names an event type.
type Kind string

const (
	RunStarted       Kind = "run_started"
	JobCompleted     Kind = "job_completed"
	JobFailed        Kind = "job_failed"
	ShotProgress     Kind = "shot_progress"
	OverallProgress  Kind = "overall_progress"
	Log              Kind = "log"
	CPUSample        Kind = "cpu_sample"
	RunFinished      Kind = "run_finished"
	ScanCompleted    Kind = "scan_completed"
	ShotPromoted     Kind = "shot_promoted"
	PromotionSkipped Kind = "promotion_skipped"
	PromotionFailed  Kind = "promotion_failed"
	Fatal            Kind = "fatal_error"
)

// Level is the severity of a Log event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Progress carries done/total counters and the derived estimate.
type Progress struct {
	Done    int
	Total   int
	Elapsed time.Duration
	ETA     time.Duration
}

// Percent returns done/total as 0..100, 0 when total is 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// CPU is a best-effort utilisation sample of converter child processes.
type CPU struct {
	Percent float64
	Threads float64
}

// Summary closes a conversion run.
type Summary struct {
	Total    int
	Done     int
	Failed   int
	Skipped  int
	Duration time.Duration
	Canceled bool
}

// Event is one domain event. Only the fields relevant to Kind are set.
type Event struct {
	Kind        Kind
	At          time.Time
	RunID       string
	Shot        string
	Frame       string
	Source      string
	Destination string
	Level       Level
	Message     string
	Progress    Progress
	CPU         CPU
	Summary     Summary
}

// String renders the event as a single human readable line.
func (e Event) String() string {
	switch e.Kind {
	case JobCompleted:
		return fmt.Sprintf("converted %s/%s", e.Shot, e.Frame)
	case JobFailed:
		return fmt.Sprintf("failed %s/%s: %s", e.Shot, e.Frame, e.Message)
	case ShotProgress:
		return fmt.Sprintf("%s: %d/%d", e.Shot, e.Progress.Done, e.Progress.Total)
	case OverallProgress:
		return fmt.Sprintf("overall: %d/%d (%.1f%%) ETA %s", e.Progress.Done, e.Progress.Total, e.Progress.Percent(), FormatETA(e.Progress.ETA))
	case CPUSample:
		return fmt.Sprintf("cpu: %.0f%% (~%.1f threads)", e.CPU.Percent, e.CPU.Threads)
	case RunFinished:
		return fmt.Sprintf("run finished: %d done, %d failed, %d skipped in %s",
			e.Summary.Done, e.Summary.Failed, e.Summary.Skipped, e.Summary.Duration.Round(time.Second))
	case ShotPromoted:
		return fmt.Sprintf("promoted %s to %s", e.Shot, e.Destination)
	case PromotionSkipped:
		return fmt.Sprintf("skipped promotion of %s: %s", e.Shot, e.Message)
	case PromotionFailed:
		return fmt.Sprintf("promotion of %s failed: %s", e.Shot, e.Message)
	default:
		return e.Message
	}
}

// FormatETA renders d as HH:MM:SS.
func FormatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
