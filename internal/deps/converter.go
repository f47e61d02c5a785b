package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"sbsconv/internal/services"
)

// ConverterName is the default converter executable.
const ConverterName = "oiiotool"

// executable is swapped in tests to control the sidecar lookup.
var executable = os.Executable

// ResolveConverter locates the converter binary. Lookup order: the
// configured value (a path or a name resolved on PATH), then oiiotool and
// oiiotool.exe on PATH, then an oiiotool sidecar next to the running
// sbsconv executable.
func ResolveConverter(configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if resolved, err := exec.LookPath(configured); err == nil {
			return resolved, nil
		}
		if strings.ContainsRune(configured, os.PathSeparator) {
			return "", services.Wrap(services.ErrConfiguration, "deps", "resolve converter",
				fmt.Sprintf("converter %q not found or not executable", configured), nil)
		}
	}
	for _, name := range []string{ConverterName, ConverterName + ".exe"} {
		if resolved, err := exec.LookPath(name); err == nil {
			return resolved, nil
		}
	}
	if self, err := executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), converterFileName())
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrConfiguration, "deps", "resolve converter",
		"oiiotool not found; install OpenImageIO tools or set converter.binary", nil)
}

// CheckConverter reports converter availability for the deps command.
func CheckConverter(configured string) Status {
	status := Status{
		Name:        "oiiotool",
		Command:     strings.TrimSpace(configured),
		Description: "Converts EXR frames to SBS",
	}
	resolved, err := ResolveConverter(configured)
	if err != nil {
		status.Detail = services.Details(err).Message
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

func converterFileName() string {
	if runtime.GOOS == "windows" {
		return ConverterName + ".exe"
	}
	return ConverterName
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
