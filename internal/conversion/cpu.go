package conversion

import (
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"sbsconv/internal/events"
)

// cpuSampler derives utilisation of finished converter processes from the
// RUSAGE_CHILDREN counters. Processes still running are not counted until
// they exit, so samples lag by roughly one frame.
type cpuSampler struct {
	last     time.Duration
	lastWall time.Time
	cores    int
}

func newCPUSampler(now time.Time) *cpuSampler {
	s := &cpuSampler{lastWall: now, cores: runtime.NumCPU()}
	s.last, _ = childCPUTime()
	return s
}

// sample returns the utilisation since the previous call. ok is false when
// rusage is unavailable or no wall time elapsed.
func (s *cpuSampler) sample(now time.Time) (events.CPU, bool) {
	used, err := childCPUTime()
	if err != nil {
		return events.CPU{}, false
	}
	wall := now.Sub(s.lastWall)
	delta := used - s.last
	s.last = used
	s.lastWall = now
	if wall <= 0 || delta < 0 {
		return events.CPU{}, false
	}
	threads := float64(delta) / float64(wall)
	cores := s.cores
	if cores < 1 {
		cores = 1
	}
	percent := threads * 100 / float64(cores)
	if percent > 100 {
		percent = 100
	}
	return events.CPU{Percent: percent, Threads: threads}, true
}

func childCPUTime() (time.Duration, error) {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &usage); err != nil {
		return 0, err
	}
	return time.Duration(usage.Utime.Nano() + usage.Stime.Nano()), nil
}
