package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"sbsconv/internal/deps"
	"sbsconv/internal/events"
	"sbsconv/internal/logging"
	"sbsconv/internal/progress"
	"sbsconv/internal/services"
	"sbsconv/internal/shot"
)

// resolveConverter is swapped in tests.
var resolveConverter = deps.ResolveConverter

const eventBuffer = 64

// Converter converts one frame. Implementations must leave dst untouched
// on failure.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
	Binary() string
}

// Options tune a single run.
type Options struct {
	MaxWorkers int
	// CPUInterval is the CPUSample cadence; zero disables sampling.
	CPUInterval time.Duration
	// ETAWindow switches the ETA to a moving average over the last n
	// completions.
	ETAWindow int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "conversion")
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs conversion jobs on a bounded set of workers.
type Scheduler struct {
	conv   Converter
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a scheduler around conv.
func New(conv Converter, opts ...Option) *Scheduler {
	s := &Scheduler{
		conv:   conv,
		logger: logging.NewComponentLogger(nil, "conversion"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert validates the converter, plans jobs for shots, and starts the
// run. The returned channel must be drained; it closes after RunFinished.
// A configuration error is returned before any job starts.
func (s *Scheduler) Convert(ctx context.Context, shots []shot.Shot, opts Options) (<-chan events.Event, error) {
	if s.conv == nil {
		return nil, services.Wrap(services.ErrConfiguration, "conversion", "preflight", "converter not configured", nil)
	}
	if _, err := resolveConverter(s.conv.Binary()); err != nil {
		return nil, err
	}
	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	jobs, totals := Plan(shots)
	r := &run{
		id:      uuid.NewString(),
		sched:   s,
		jobs:    jobs,
		totals:  totals,
		workers: workers,
		opts:    opts,
		out:     make(chan events.Event, eventBuffer),
		tracker: progress.NewTracker(progress.WithWindow(opts.ETAWindow), progress.WithClock(s.now)),
	}
	r.logger = s.logger.With(logging.String(logging.FieldRunID, r.id))
	go r.execute(services.WithRunID(ctx, r.id))
	return r.out, nil
}

type run struct {
	id      string
	sched   *Scheduler
	logger  *slog.Logger
	jobs    []Job
	totals  map[string]int
	workers int
	opts    Options
	tracker *progress.Tracker

	out chan events.Event
	// mu orders progress snapshots with their events so consumers see
	// monotonic counters.
	mu        sync.Mutex
	succeeded int
	failed    int
}

func (r *run) emit(e events.Event) {
	if e.At.IsZero() {
		e.At = r.sched.now()
	}
	e.RunID = r.id
	r.out <- e
}

func (r *run) log(level events.Level, shotName, message string) {
	r.emit(events.Event{Kind: events.Log, Level: level, Shot: shotName, Message: message})
}

func (r *run) execute(ctx context.Context) {
	defer close(r.out)

	started := r.sched.now()
	r.tracker.Begin(r.totals)
	total := len(r.jobs)

	r.logger.Info("conversion run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("shots", len(r.totals)),
		logging.Int("frames", total),
		logging.Int("workers", r.workers),
	)
	r.emit(events.Event{
		Kind:     events.RunStarted,
		At:       started,
		Message:  fmt.Sprintf("Converting %d frames across %d shots with %d workers", total, len(r.totals), r.workers),
		Progress: events.Progress{Total: total},
	})
	announced := make(map[string]bool, len(r.totals))
	for _, job := range r.jobs {
		if announced[job.Shot] {
			continue
		}
		announced[job.Shot] = true
		r.log(events.LevelInfo, job.Shot, fmt.Sprintf("%s: Converting %d frames...", job.Shot, r.totals[job.Shot]))
	}

	stopCPU := r.sampleCPU()

	sem := semaphore.NewWeighted(int64(r.workers))
	jobCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	skipped := 0
	canceled := false
	for i, job := range r.jobs {
		if ctx.Err() != nil {
			skipped = total - i
			canceled = true
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			skipped = total - i
			canceled = true
			break
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			defer sem.Release(1)
			r.runJob(services.WithShot(jobCtx, job.Shot), job)
		}(job)
	}
	wg.Wait()
	stopCPU()

	if canceled {
		r.log(events.LevelWarn, "", fmt.Sprintf("Run canceled; %d frames not started", skipped))
	}

	r.mu.Lock()
	summary := events.Summary{
		Total:    total,
		Done:     r.succeeded,
		Failed:   r.failed,
		Skipped:  skipped,
		Duration: r.sched.now().Sub(started),
		Canceled: canceled,
	}
	r.mu.Unlock()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("converted", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
	}
	if summary.Failed > 0 {
		logging.WarnWithContext(r.logger, "conversion run finished with failures", "run_finished",
			append(attrs,
				logging.String(logging.FieldErrorHint, "inspect failed frames in the log and rerun convert"),
				logging.String(logging.FieldImpact, "failed frames remain outstanding"))...)
	} else {
		r.logger.Info("conversion run finished", logging.Args(attrs...)...)
	}
	r.emit(events.Event{Kind: events.RunFinished, Summary: summary})
}

func (r *run) runJob(ctx context.Context, job Job) {
	err := r.sched.conv.Convert(ctx, job.Source, job.Destination())

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.tracker.Complete(job.Shot)
	if err != nil {
		r.failed++
		details := services.Details(err)
		logging.WarnWithContext(r.logger, "frame conversion failed", "frame_failed",
			logging.Shot(job.Shot),
			logging.Frame(job.Frame()),
			logging.String("error_kind", details.Kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the converter output for this frame"),
			logging.String(logging.FieldImpact, "frame stays outstanding until the next run"),
		)
		r.emit(events.Event{Kind: events.JobFailed, Shot: job.Shot, Frame: job.Frame(), Message: details.Message})
		r.log(events.LevelError, job.Shot, fmt.Sprintf("%s failed - %s", job.Frame(), failureText(err)))
	} else {
		r.succeeded++
		r.logger.Debug("frame converted", logging.Shot(job.Shot), logging.Frame(job.Frame()))
		r.emit(events.Event{Kind: events.JobCompleted, Shot: job.Shot, Frame: job.Frame(), Destination: job.Destination()})
		r.log(events.LevelInfo, job.Shot, fmt.Sprintf("%s: %s converted", job.Shot, job.Frame()))
	}

	r.emit(events.Event{
		Kind:     events.ShotProgress,
		Shot:     job.Shot,
		Progress: events.Progress{Done: snap.ShotDone, Total: snap.ShotTotal, Elapsed: snap.Elapsed},
	})
	if snap.ShotDone == snap.ShotTotal {
		r.log(events.LevelInfo, job.Shot, fmt.Sprintf("Finished %s", job.Shot))
	}
	r.emit(events.Event{
		Kind:     events.OverallProgress,
		Progress: events.Progress{Done: snap.Done, Total: snap.Total, Elapsed: snap.Elapsed, ETA: snap.ETA},
	})
}

// sampleCPU emits CPUSample events until the returned stop func is called.
func (r *run) sampleCPU() func() {
	if r.opts.CPUInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	sampler := newCPUSampler(r.sched.now())
	go func() {
		defer close(finished)
		ticker := time.NewTicker(r.opts.CPUInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if cpu, ok := sampler.sample(r.sched.now()); ok {
					r.mu.Lock()
					r.emit(events.Event{Kind: events.CPUSample, CPU: cpu})
					r.mu.Unlock()
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func failureText(err error) string {
	message := services.Details(err).Message
	message = strings.TrimPrefix(message, "converter: convert frame: ")
	if idx := strings.Index(message, ": exit status"); idx > 0 {
		message = message[:idx]
	}
	return strings.TrimSpace(message)
}
