package history

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunWithErrors  RunStatus = "completed_with_errors"
	RunCanceled    RunStatus = "canceled"
	RunInterrupted RunStatus = "interrupted"
)

// Run is one conversion run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	SourceRoot string    `json:"source_root"`
	Total      int       `json:"total"`
	Done       int       `json:"done"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Status     RunStatus `json:"status"`
}

// Duration returns the run wall time, zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FrameFailure is one failed frame conversion.
type FrameFailure struct {
	RunID   string
	Shot    string
	Frame   string
	Message string
	At      time.Time
}

// Promotion is one promotion attempt.
type Promotion struct {
	Shot        string
	Source      string
	Destination string
	Result      string
	Message     string
	At          time.Time
}
