package conversion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"sbsconv/internal/converter"
	"sbsconv/internal/events"
	"sbsconv/internal/services"
	"sbsconv/internal/shot"
	"sbsconv/internal/testsupport"
)

type fakeConverter struct {
	mu     sync.Mutex
	active int
	peak   int
	calls  int
	delay  time.Duration
	hook   func(src string)
}

func (f *fakeConverter) Binary() string { return "oiiotool" }

func (f *fakeConverter) Convert(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.active++
	f.calls++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.hook != nil {
		f.hook(src)
	}
	time.Sleep(f.delay)
	if strings.Contains(filepath.Base(src), "fail") {
		return services.Wrap(services.ErrExternalTool, "converter", "convert frame", "bad frame", errors.New("exit status 1"))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("sbs"), 0o644)
}

func acceptAnyConverter(t *testing.T) {
	t.Helper()
	prev := resolveConverter
	resolveConverter = func(configured string) (string, error) { return configured, nil }
	t.Cleanup(func() { resolveConverter = prev })
}

func frameNames(prefix string, n int) []string {
	names := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		names = append(names, fmt.Sprintf("%s.%04d.exr", prefix, i))
	}
	return names
}

func newShot(t *testing.T, root, name string, frames ...string) shot.Shot {
	t.Helper()
	dir := filepath.Join(root, name)
	testsupport.WriteFrames(t, dir, frames...)
	return shot.Shot{Name: name, SourcePath: dir, FrameCount: len(frames)}
}

func collect(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func finished(t *testing.T, evs []events.Event) events.Summary {
	t.Helper()
	if len(evs) == 0 || evs[len(evs)-1].Kind != events.RunFinished {
		t.Fatalf("expected run to end with RunFinished, got %d events", len(evs))
	}
	return evs[len(evs)-1].Summary
}

func TestPlanUsesFrameDiffAndSkipsDoneShots(t *testing.T) {
	root := t.TempDir()
	partial := newShot(t, root, "sh010", "a.exr", "b.exr", "c.exr")
	testsupport.WriteFrames(t, shot.BesideDir(partial.SourcePath), "a_SBS.exr")
	partial.ConvertedCount = 1

	complete := newShot(t, root, "sh020", "x.exr")
	testsupport.WriteFrames(t, shot.BesideDir(complete.SourcePath), "x_SBS.exr")
	complete.ConvertedCount = 1

	ghost := shot.Shot{Name: "sh030", FrameCount: 4, Ghost: true}

	jobs, totals := Plan([]shot.Shot{partial, complete, ghost})
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Frame() != "b.exr" || jobs[1].Frame() != "c.exr" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	if got := jobs[0].Destination(); got != filepath.Join(shot.BesideDir(partial.SourcePath), "b_SBS.exr") {
		t.Fatalf("unexpected destination %q", got)
	}
	if len(totals) != 1 || totals["sh010"] != 2 {
		t.Fatalf("unexpected totals: %v", totals)
	}
}

func TestPlanIgnoresStaleCountsAndLeftoverTemps(t *testing.T) {
	root := t.TempDir()

	// A crashed run left a temp file; counting it made the shot look done.
	crashed := newShot(t, root, "sh010", "sh010.0001.exr", "sh010.0002.exr")
	testsupport.WriteFrames(t, shot.BesideDir(crashed.SourcePath),
		"sh010.0001_SBS.exr", ".sh010.0002.tmp-0b1c_SBS.exr")
	crashed.ConvertedCount = 2

	// An old converted file with no source frame left behind.
	stale := newShot(t, root, "sh020", "a.exr", "b.exr")
	testsupport.WriteFrames(t, shot.BesideDir(stale.SourcePath), "a_SBS.exr", "old_SBS.exr")
	stale.ConvertedCount = 2

	jobs, totals := Plan([]shot.Shot{crashed, stale})
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", jobs)
	}
	if jobs[0].Shot != "sh010" || jobs[0].Frame() != "sh010.0002.exr" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}
	if jobs[1].Shot != "sh020" || jobs[1].Frame() != "b.exr" {
		t.Fatalf("unexpected second job: %+v", jobs[1])
	}
	if totals["sh010"] != 1 || totals["sh020"] != 1 {
		t.Fatalf("unexpected totals: %v", totals)
	}
}

func TestPlanMovedShotWritesIntoDestination(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()
	moved := newShot(t, root, "sh040", "a.exr", "b.exr")
	moved.IsMoved = true
	moved.MovedPath = dest
	testsupport.WriteFrames(t, shot.DestinationDir(dest, "sh040"), "a_SBS.exr")
	moved.ConvertedCount = 1

	jobs, _ := Plan([]shot.Shot{moved})
	if len(jobs) != 1 || jobs[0].DestDir != shot.DestinationDir(dest, "sh040") {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestConvertRespectsWorkerBound(t *testing.T) {
	acceptAnyConverter(t)
	root := t.TempDir()
	shots := []shot.Shot{
		newShot(t, root, "sh010", frameNames("sh010", 6)...),
		newShot(t, root, "sh020", frameNames("sh020", 6)...),
	}
	fake := &fakeConverter{delay: 5 * time.Millisecond}

	ch, err := New(fake).Convert(context.Background(), shots, Options{MaxWorkers: 3})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	summary := finished(t, collect(ch))

	if fake.peak > 3 {
		t.Fatalf("expected at most 3 concurrent conversions, saw %d", fake.peak)
	}
	if fake.calls != 12 || summary.Done != 12 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v after %d calls", summary, fake.calls)
	}
	for _, s := range shots {
		if jobs, _ := Plan([]shot.Shot{s}); len(jobs) != 0 {
			t.Fatalf("%s still has %d outstanding frames", s.Name, len(jobs))
		}
	}
}

func TestConvertCountersAreMonotonicAndSum(t *testing.T) {
	acceptAnyConverter(t)
	root := t.TempDir()
	shots := []shot.Shot{
		newShot(t, root, "sh010", frameNames("sh010", 5)...),
		newShot(t, root, "sh020", append(frameNames("sh020", 3), "sh020.fail.exr")...),
	}
	fake := &fakeConverter{delay: time.Millisecond}

	ch, err := New(fake).Convert(context.Background(), shots, Options{MaxWorkers: 4, ETAWindow: 3})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	evs := collect(ch)
	summary := finished(t, evs)

	lastOverall := -1
	perShot := map[string]int{}
	var final events.Progress
	for _, e := range evs {
		switch e.Kind {
		case events.OverallProgress:
			if e.Progress.Done < lastOverall {
				t.Fatalf("overall done went backwards: %d after %d", e.Progress.Done, lastOverall)
			}
			if e.Progress.Done > e.Progress.Total {
				t.Fatalf("overall done %d exceeds total %d", e.Progress.Done, e.Progress.Total)
			}
			lastOverall = e.Progress.Done
			final = e.Progress
		case events.ShotProgress:
			if e.Progress.Done < perShot[e.Shot] {
				t.Fatalf("%s done went backwards", e.Shot)
			}
			perShot[e.Shot] = e.Progress.Done
		}
		if e.RunID == "" {
			t.Fatalf("event %s missing run id", e.Kind)
		}
	}
	if final.Done != 9 || final.Total != 9 {
		t.Fatalf("unexpected final progress %+v", final)
	}
	if perShot["sh010"]+perShot["sh020"] != final.Done {
		t.Fatalf("per-shot counts %v do not sum to %d", perShot, final.Done)
	}
	if summary.Done != 8 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestConvertFailingFrameIsIsolated(t *testing.T) {
	root := t.TempDir()
	s := newShot(t, root, "sh010", "a.exr", "b_fail.exr", "c.exr")
	client, err := converter.New(testsupport.StubConverter(t), converter.Settings{Compression: "zip", PixelType: "half"})
	if err != nil {
		t.Fatalf("converter.New: %v", err)
	}

	ch, err := New(client).Convert(context.Background(), []shot.Shot{s}, Options{MaxWorkers: 2})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	evs := collect(ch)
	summary := finished(t, evs)
	if summary.Done != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	outDir := shot.BesideDir(s.SourcePath)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	if strings.Join(names, ",") != "a_SBS.exr,c_SBS.exr" {
		t.Fatalf("unexpected output files: %v", names)
	}

	var failure, failureLog bool
	for _, e := range evs {
		if e.Kind == events.JobFailed && e.Frame == "b_fail.exr" {
			failure = true
		}
		if e.Kind == events.Log && e.Level == events.LevelError && strings.HasPrefix(e.Message, "b_fail.exr failed - ") {
			failureLog = true
			if !strings.Contains(e.Message, "cannot convert") {
				t.Fatalf("expected stderr in failure log, got %q", e.Message)
			}
		}
	}
	if !failure || !failureLog {
		t.Fatalf("expected JobFailed and error log for failing frame")
	}
}

func TestConvertEmitsShotLogs(t *testing.T) {
	acceptAnyConverter(t)
	s := newShot(t, t.TempDir(), "sh010", "a.exr", "b.exr")

	ch, err := New(&fakeConverter{}).Convert(context.Background(), []shot.Shot{s}, Options{MaxWorkers: 1})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	var logs []string
	for _, e := range collect(ch) {
		if e.Kind == events.Log {
			logs = append(logs, e.Message)
		}
	}
	want := []string{"sh010: Converting 2 frames...", "sh010: a.exr converted", "sh010: b.exr converted", "Finished sh010"}
	if !reflect.DeepEqual(logs, want) {
		t.Fatalf("unexpected logs: %q", logs)
	}
}

func TestConvertCancellationSkipsUnsubmittedJobs(t *testing.T) {
	acceptAnyConverter(t)
	s := newShot(t, t.TempDir(), "sh010", frameNames("sh010", 5)...)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fake := &fakeConverter{hook: func(string) {
		once.Do(func() { close(started) })
		<-release
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := New(fake).Convert(ctx, []shot.Shot{s}, Options{MaxWorkers: 1})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	resultCh := make(chan []events.Event, 1)
	go func() { resultCh <- collect(ch) }()

	<-started
	cancel()
	close(release)

	summary := finished(t, <-resultCh)
	if !summary.Canceled {
		t.Fatal("expected canceled summary")
	}
	if summary.Done != 1 || summary.Skipped != 4 {
		t.Fatalf("expected the in-flight frame to finish and 4 skipped, got %+v", summary)
	}
}

func TestConvertPreflightFailure(t *testing.T) {
	prev := resolveConverter
	resolveConverter = func(string) (string, error) {
		return "", services.Wrap(services.ErrConfiguration, "deps", "resolve converter", "oiiotool not found", nil)
	}
	t.Cleanup(func() { resolveConverter = prev })

	fake := &fakeConverter{}
	s := newShot(t, t.TempDir(), "sh010", "a.exr")
	ch, err := New(fake).Convert(context.Background(), []shot.Shot{s}, Options{MaxWorkers: 1})
	if err == nil || ch != nil {
		t.Fatal("expected preflight error and no channel")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no conversions, got %d", fake.calls)
	}
}

func TestCPUSamplerClampsPercent(t *testing.T) {
	start := time.Now()
	sampler := newCPUSampler(start)
	sampler.cores = 1
	if _, ok := sampler.sample(start); ok {
		t.Fatal("expected no sample for zero wall time")
	}
	cpu, ok := sampler.sample(start.Add(time.Second))
	if !ok {
		t.Skip("rusage unavailable")
	}
	if cpu.Percent < 0 || cpu.Percent > 100 {
		t.Fatalf("percent out of range: %v", cpu.Percent)
	}
}
