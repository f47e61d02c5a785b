package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func TestTempNameKeepsSuffix(t *testing.T) {
	got := TempName("/out/sh010_SBS/sh010.0001_SBS.exr", "_SBS.exr")
	dir, base := filepath.Split(got)
	if dir != "/out/sh010_SBS/" {
		t.Fatalf("unexpected dir %q", dir)
	}
	if !strings.HasPrefix(base, ".sh010.0001.tmp-") || !strings.HasSuffix(base, "_SBS.exr") {
		t.Fatalf("unexpected temp name %q", base)
	}
	if TempName("/x/a_SBS.exr", "_SBS.exr") == TempName("/x/a_SBS.exr", "_SBS.exr") {
		t.Fatal("expected unique temp names")
	}
	if other := filepath.Base(TempName("/x/notes.txt", "_SBS.exr")); !strings.HasPrefix(other, ".notes.tmp-") || !strings.HasSuffix(other, ".txt") {
		t.Fatalf("unexpected fallback temp name %q", other)
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.json")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Fatalf("content = %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicFailedRenameKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	rename = func(string, string) error { return errors.New("disk full") }
	t.Cleanup(func() { rename = os.Rename })

	if err := WriteFileAtomic(path, []byte("next"), 0o644); err == nil {
		t.Fatal("expected rename failure")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "previous" {
		t.Fatalf("previous content lost: %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp file removal, found %d entries", len(entries))
	}
}

func TestMoveDirRename(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src", "sh010_SBS")
	writeTree(t, src)
	dst := filepath.Join(base, "dest", "sh010_SBS")

	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	assertTree(t, dst)
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
}

func TestMoveDirCrossDeviceFallback(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src", "sh010_SBS")
	writeTree(t, src)
	dst := filepath.Join(base, "dest", "sh010_SBS")

	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { rename = os.Rename })

	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir: %v", err)
	}
	assertTree(t, dst)
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected source removed after copy, stat err=%v", err)
	}
}

func TestMoveDirRefusesExistingTarget(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "a")
	dst := filepath.Join(base, "b")
	writeTree(t, src)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	err := MoveDir(src, dst)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	assertTree(t, src)
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frame.exr")
	dst := filepath.Join(dir, "copy.exr")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "pixels" {
		t.Fatalf("content mismatch: %q", got)
	}
	if err := CopyFileVerified(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func writeTree(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"a_SBS.exr":     "a",
		"b_SBS.exr":     "b",
		"sub/notes.txt": "n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func assertTree(t *testing.T, root string) {
	t.Helper()
	for rel, want := range map[string]string{"a_SBS.exr": "a", "b_SBS.exr": "b", "sub/notes.txt": "n"} {
		got, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(got) != want {
			t.Fatalf("%s = %q, want %q", rel, got, want)
		}
	}
}
