// Package progress aggregates per-shot and overall completion counts for a
// conversion run and derives a best-effort ETA.
package progress

import (
	"sync"
	"time"
)

// Snapshot is the tracker state right after one job completed.
type Snapshot struct {
	Shot      string
	ShotDone  int
	ShotTotal int
	Done      int
	Total     int
	Elapsed   time.Duration
	ETA       time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWindow switches the estimator to a moving average over the last n
// completion intervals. n < 2 keeps the linear estimate.
func WithWindow(n int) Option {
	return func(t *Tracker) {
		if n >= 2 {
			t.window = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

type counter struct {
	done  int
	total int
}

// Tracker is safe for concurrent use. Counters only increase.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	window  int
	started time.Time
	done    int
	total   int
	shots   map[string]*counter
	recent  []time.Time
}

// NewTracker constructs an idle tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now, shots: make(map[string]*counter)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Begin resets the tracker for a new run with per-shot job totals.
func (t *Tracker) Begin(totals map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started = t.now()
	t.done = 0
	t.total = 0
	t.shots = make(map[string]*counter, len(totals))
	for name, total := range totals {
		if total < 0 {
			total = 0
		}
		t.shots[name] = &counter{total: total}
		t.total += total
	}
	t.recent = t.recent[:0]
	if t.window > 0 {
		t.recent = append(t.recent, t.started)
	}
}

// Complete records one finished job (successful or failed) for shot.
// Completions beyond a shot's total are ignored so counters never exceed
// their denominators.
func (t *Tracker) Complete(shot string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.shots[shot]
	if ok && c.done < c.total {
		c.done++
		t.done++
		if t.window > 0 {
			t.recent = append(t.recent, now)
			if len(t.recent) > t.window+1 {
				t.recent = t.recent[len(t.recent)-t.window-1:]
			}
		}
	}
	return t.snapshotLocked(shot, now)
}

// Snapshot returns the overall state without recording a completion.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked("", t.now())
}

// Shot returns done/total for one shot.
func (t *Tracker) Shot(name string) (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.shots[name]; ok {
		return c.done, c.total
	}
	return 0, 0
}

func (t *Tracker) snapshotLocked(shot string, now time.Time) Snapshot {
	snap := Snapshot{
		Shot:    shot,
		Done:    t.done,
		Total:   t.total,
		Elapsed: now.Sub(t.started),
	}
	if c, ok := t.shots[shot]; ok {
		snap.ShotDone = c.done
		snap.ShotTotal = c.total
	}
	snap.ETA = t.etaLocked(snap.Elapsed)
	return snap
}

// etaLocked is (total-done) * elapsed/done, or the same extrapolation over
// the recent completion window. Zero until the first completion.
func (t *Tracker) etaLocked(elapsed time.Duration) time.Duration {
	if t.done == 0 {
		return 0
	}
	remaining := t.total - t.done
	if remaining <= 0 {
		return 0
	}
	if t.window > 0 && len(t.recent) >= 2 {
		span := t.recent[len(t.recent)-1].Sub(t.recent[0])
		per := span / time.Duration(len(t.recent)-1)
		return time.Duration(remaining) * per
	}
	return time.Duration(float64(remaining) * float64(elapsed) / float64(t.done))
}
