package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFrames creates dir and writes a small placeholder file for each name.
// The file body is the name itself so copies can be traced back.
func WriteFrames(t testing.TB, dir string, names ...string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// SetMTime sets both access and modification time of path.
func SetMTime(t testing.TB, path string, when time.Time) {
	t.Helper()

	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// SpacedFrames writes count frames named <prefix>.NNNN.exr into dir with
// modification times spaced by interval, the newest at newest.
func SpacedFrames(t testing.TB, dir, prefix string, count int, interval time.Duration, newest time.Time) []string {
	t.Helper()

	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		names = append(names, framePadded(prefix, i))
	}
	WriteFrames(t, dir, names...)
	for i, name := range names {
		offset := time.Duration(count-1-i) * interval
		SetMTime(t, filepath.Join(dir, name), newest.Add(-offset))
	}
	return names
}

func framePadded(prefix string, n int) string {
	digits := []byte("0000")
	for i := len(digits) - 1; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return prefix + "." + string(digits) + ".exr"
}
