package conversion

import (
	"path/filepath"

	"sbsconv/internal/framediff"
	"sbsconv/internal/shot"
)

// Job converts one source frame into DestDir.
type Job struct {
	Shot    string
	Source  string
	DestDir string
}

// Frame returns the source frame file name.
func (j Job) Frame() string {
	return filepath.Base(j.Source)
}

// Destination returns the final converted frame path.
func (j Job) Destination() string {
	return filepath.Join(j.DestDir, shot.ConvertedFrameName(j.Source))
}

// Plan builds one job per outstanding frame of every shot, in shot then
// frame order. Outstanding frames come from the on-disk diff, never from
// scan counts. The returned totals map holds the job count per planned
// shot; shots with nothing outstanding are left out.
func Plan(shots []shot.Shot) ([]Job, map[string]int) {
	var jobs []Job
	totals := make(map[string]int)
	for _, s := range shots {
		if s.Ghost {
			continue
		}
		destDir := s.ConvertedDir()
		frames := framediff.OutstandingIn(s.SourcePath, destDir)
		if len(frames) == 0 {
			continue
		}
		totals[s.Name] = len(frames)
		for _, frame := range frames {
			jobs = append(jobs, Job{
				Shot:    s.Name,
				Source:  filepath.Join(s.SourcePath, frame),
				DestDir: destDir,
			})
		}
	}
	return jobs, totals
}
