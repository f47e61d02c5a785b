package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sbsconv/internal/events"
	"sbsconv/internal/logging"
)

// progressRenderer prints conversion and promotion events for a human.
// On a terminal the overall progress line is redrawn in place; otherwise
// it is printed once per 10% step.
type progressRenderer struct {
	mu       sync.Mutex
	w        io.Writer
	live     bool
	printer  *message.Printer
	sampler  *logging.ProgressSampler
	cpu      events.CPU
	hasCPU   bool
	last     events.Progress
	lineOpen bool
}

func newProgressRenderer(w io.Writer, live bool) *progressRenderer {
	return &progressRenderer{
		w:       w,
		live:    live,
		printer: message.NewPrinter(language.English),
		sampler: logging.NewProgressSampler(10),
	}
}

func (r *progressRenderer) Handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case events.RunStarted:
		r.sampler.Reset()
		r.hasCPU = false
		r.last = e.Progress
		r.println(e.Message)
	case events.Log:
		prefix := ""
		if e.Level == events.LevelError {
			prefix = "! "
		}
		r.println(prefix + e.Message)
	case events.CPUSample:
		r.cpu = e.CPU
		r.hasCPU = true
		if r.live && r.lineOpen {
			r.redraw()
		}
	case events.OverallProgress:
		r.last = e.Progress
		if r.live {
			r.redraw()
			return
		}
		if r.sampler.ShouldLog(e.RunID, e.Progress.Percent()) {
			r.println(r.statusLine())
		}
	case events.RunFinished:
		if r.lineOpen {
			fmt.Fprint(r.w, "\r\x1b[K")
			r.lineOpen = false
		}
		r.println(r.summaryLine(e.Summary))
	case events.ShotPromoted, events.PromotionSkipped, events.PromotionFailed:
		r.println(e.String())
	case events.Fatal:
		r.println("error: " + e.Message)
	}
}

func (r *progressRenderer) statusLine() string {
	p := r.last
	line := r.printer.Sprintf("%d/%d frames (%.1f%%)  elapsed %s  ETA %s",
		p.Done, p.Total, p.Percent(), events.FormatETA(p.Elapsed), events.FormatETA(p.ETA))
	if r.hasCPU {
		line += r.printer.Sprintf("  CPU %.0f%% (~%.1f threads)", r.cpu.Percent, r.cpu.Threads)
	}
	return line
}

func (r *progressRenderer) summaryLine(s events.Summary) string {
	verb := "Finished"
	if s.Canceled {
		verb = "Canceled"
	}
	return r.printer.Sprintf("%s: %d converted, %d failed, %d skipped of %d frames in %s",
		verb, s.Done, s.Failed, s.Skipped, s.Total, s.Duration.Round(time.Second))
}

func (r *progressRenderer) redraw() {
	fmt.Fprint(r.w, "\r\x1b[K"+r.statusLine())
	r.lineOpen = true
}

// println prints a full line, moving past any in-place status line first
// and redrawing it afterwards.
func (r *progressRenderer) println(line string) {
	if r.lineOpen {
		fmt.Fprint(r.w, "\r\x1b[K")
	}
	fmt.Fprintln(r.w, line)
	if r.lineOpen {
		fmt.Fprint(r.w, r.statusLine())
	}
}

// finish terminates an open status line.
func (r *progressRenderer) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lineOpen {
		fmt.Fprintln(r.w)
		r.lineOpen = false
	}
}
