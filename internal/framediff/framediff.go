// Package framediff computes which source frames of a shot still need
// converting. Every call reads the filesystem; nothing is cached.
package framediff

import (
	"os"
	"sort"
	"strings"

	"sbsconv/internal/shot"
)

// SourceFrames lists untagged frame names in dir in lexical order. Hidden
// files are skipped. An unreadable directory yields nil.
func SourceFrames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	frames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || hidden(entry.Name()) {
			continue
		}
		if shot.IsSourceFrame(entry.Name()) {
			frames = append(frames, entry.Name())
		}
	}
	sort.Strings(frames)
	return frames
}

// Count returns the number of source frames in dir.
func Count(dir string) int {
	return len(SourceFrames(dir))
}

// CountConverted returns the number of converted-tagged frames in dir,
// ignoring hidden in-flight temp files. It does not check that each file
// has a source frame; use ConvertedIn for that.
func CountConverted(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && !hidden(name) && shot.IsFrame(name) && shot.IsConvertedTagged(name) {
			count++
		}
	}
	return count
}

// ConvertedIn returns how many source frames of sourcePath have their
// converted counterpart in convertedDir. Stray converted files with no
// matching source frame are not counted.
func ConvertedIn(sourcePath, convertedDir string) int {
	frames := SourceFrames(sourcePath)
	if len(frames) == 0 {
		return 0
	}
	existing := convertedNames(convertedDir)
	if existing == nil {
		return 0
	}
	return len(frames) - len(missing(frames, existing))
}

// ConvertedName returns the converted file name for a source frame.
func ConvertedName(frame string) string {
	return shot.ConvertedFrameName(frame)
}

// Outstanding returns the source frames of sourcePath that have no
// converted counterpart in the sibling <sourcePath>_SBS directory.
func Outstanding(sourcePath string) []string {
	return OutstandingIn(sourcePath, shot.BesideDir(sourcePath))
}

// OutstandingIn is Outstanding against an explicit converted directory.
// When convertedDir cannot be read every source frame is returned, so
// work is redone rather than silently skipped.
func OutstandingIn(sourcePath, convertedDir string) []string {
	frames := SourceFrames(sourcePath)
	if len(frames) == 0 {
		return frames
	}
	existing := convertedNames(convertedDir)
	if existing == nil {
		return frames
	}
	return missing(frames, existing)
}

// convertedNames returns the regular file names in dir, or nil when dir
// cannot be read.
func convertedNames(dir string) map[string]struct{} {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names[entry.Name()] = struct{}{}
		}
	}
	return names
}

func missing(frames []string, existing map[string]struct{}) []string {
	out := make([]string, 0, len(frames))
	for _, frame := range frames {
		if _, done := existing[ConvertedName(frame)]; done {
			continue
		}
		out = append(out, frame)
	}
	return out
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
