package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// stubConverterScript mimics the oiiotool command line: it copies the
// first argument to the path after -o. Frames whose base name contains
// "fail" exit non-zero without writing output.
const stubConverterScript = `#!/bin/sh
src="$1"
dst=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    shift
    dst="$1"
  fi
  shift
done
case "$(basename "$src")" in
  *fail*)
    echo "stub converter: cannot convert $src" >&2
    exit 1
    ;;
esac
if [ -z "$dst" ]; then
  echo "stub converter: missing -o" >&2
  exit 2
fi
cp "$src" "$dst"
`

// StubConverter writes the stub converter into a temp dir and returns its
// path.
func StubConverter(t testing.TB) string {
	t.Helper()
	return writeStubConverter(t, t.TempDir())
}

func writeStubConverter(t testing.TB, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, "oiiotool")
	if err := os.WriteFile(target, []byte(stubConverterScript), 0o755); err != nil {
		t.Fatalf("write stub converter: %v", err)
	}
	return target
}
