package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"sbsconv/internal/config"
	"sbsconv/internal/shot"
	"sbsconv/internal/testsupport"
	"sbsconv/internal/workflow"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLI(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithStubConverter()}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	if err := os.MkdirAll(cfg.Paths.SourceRoot, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: path}
}

func (e *cliEnv) oldShot(t *testing.T, name string, count int) {
	t.Helper()
	testsupport.SpacedFrames(t, filepath.Join(e.cfg.Paths.SourceRoot, name), name, count, time.Second, time.Now().Add(-time.Hour))
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScanReportsStatusTable(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 3)
	testsupport.WriteFrames(t, filepath.Join(env.cfg.Paths.SourceRoot, "sh020"), "sh020.0001.exr")
	testsupport.WriteFrames(t, shot.BesideDir(filepath.Join(env.cfg.Paths.SourceRoot, "sh020")), "sh020.0001_SBS.exr")

	out, err := env.run(t, "scan")
	if err != nil {
		t.Fatalf("scan: %v\n%s", err, out)
	}
	for _, want := range []string{"sh010", "Not started", "needs conversion", "sh020", "Complete", "has SBS", "2 shots"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestScanJSON(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 2)

	out, err := env.run(t, "scan", "--json")
	if err != nil {
		t.Fatalf("scan --json: %v\n%s", err, out)
	}
	var shots []shotJSON
	if err := json.Unmarshal([]byte(out), &shots); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(shots) != 1 || shots[0].Name != "sh010" || shots[0].Frames != 2 || !shots[0].NeedsConversion {
		t.Fatalf("unexpected shots %+v", shots)
	}
}

func TestScanRequiresSourceRoot(t *testing.T) {
	env := setupCLI(t)
	env.cfg.Paths.SourceRoot = ""
	data, _ := toml.Marshal(env.cfg)
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := env.run(t, "scan"); err == nil || !strings.Contains(err.Error(), "source root not set") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestConvertWritesFramesAndRecordsHistory(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 3)

	out, err := env.run(t, "convert")
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Finished: 3 converted, 0 failed, 0 skipped of 3 frames") {
		t.Fatalf("missing summary in output:\n%s", out)
	}
	entries, err := os.ReadDir(shot.BesideDir(filepath.Join(env.cfg.Paths.SourceRoot, "sh010")))
	if err != nil {
		t.Fatalf("read converted dir: %v", err)
	}
	converted := 0
	for _, entry := range entries {
		if shot.IsConvertedTagged(entry.Name()) {
			converted++
		}
	}
	if converted != 3 {
		t.Fatalf("expected 3 converted frames, got %d", converted)
	}

	out, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	var runs []struct {
		Total  int    `json:"total"`
		Done   int    `json:"done"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Total != 3 || runs[0].Done != 3 || runs[0].Status != "completed" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestConvertNothingPending(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, "convert")
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Nothing to convert") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConvertUnknownShot(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 1)
	if _, err := env.run(t, "convert", "sh999"); err == nil || !strings.Contains(err.Error(), "sh999") {
		t.Fatalf("expected unknown shot error, got %v", err)
	}
}

func TestConvertFrameWritesBeside(t *testing.T) {
	env := setupCLI(t)
	dir := filepath.Join(env.cfg.Paths.SourceRoot, "loose")
	testsupport.WriteFrames(t, dir, "plate.0001.exr")

	out, err := env.run(t, "convert-frame", filepath.Join(dir, "plate.0001.exr"))
	if err != nil {
		t.Fatalf("convert-frame: %v\n%s", err, out)
	}
	dst := filepath.Join(dir, "plate.0001_SBS.exr")
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("expected %s: %v", dst, err)
	}
	if !strings.Contains(out, dst) {
		t.Fatalf("expected output path in %q", out)
	}
}

func TestConvertFrameRejectsConverted(t *testing.T) {
	env := setupCLI(t)
	dir := filepath.Join(env.cfg.Paths.SourceRoot, "loose")
	testsupport.WriteFrames(t, dir, "plate.0001_SBS.exr")
	if _, err := env.run(t, "convert-frame", filepath.Join(dir, "plate.0001_SBS.exr")); err == nil {
		t.Fatal("expected error for an already converted frame")
	}
}

func TestPromoteMovesFinishedShot(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 2)

	if out, err := env.run(t, "convert"); err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	out, err := env.run(t, "promote")
	if err != nil {
		t.Fatalf("promote: %v\n%s", err, out)
	}
	if !strings.Contains(out, "promoted") {
		t.Fatalf("expected promoted row:\n%s", out)
	}
	dest := shot.DestinationDir(env.cfg.Paths.DestinationRoot, "sh010")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected %s: %v", dest, err)
	}

	out, err = env.run(t, "history", "promotions")
	if err != nil {
		t.Fatalf("history promotions: %v\n%s", err, out)
	}
	if !strings.Contains(out, "sh010") {
		t.Fatalf("expected promotion in history:\n%s", out)
	}
}

func TestCommandsRefuseWhileLockHeld(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 2)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	lock := flock.New(env.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}

	for _, args := range [][]string{{"scan"}, {"convert"}, {"promote"}} {
		out, err := env.run(t, args...)
		if !errors.Is(err, workflow.ErrBusy) {
			t.Fatalf("%s: expected ErrBusy, got %v\n%s", args[0], err, out)
		}
	}
	converted := filepath.Join(shot.BesideDir(filepath.Join(env.cfg.Paths.SourceRoot, "sh010")), "sh010.0001_SBS.exr")
	if _, err := os.Stat(converted); !os.IsNotExist(err) {
		t.Fatalf("convert ran while the lock was held: %v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if out, err := env.run(t, "convert"); err != nil {
		t.Fatalf("convert after unlock: %v\n%s", err, out)
	}
	if _, err := os.Stat(converted); err != nil {
		t.Fatalf("expected %s: %v", converted, err)
	}
}

func TestPromoteNamedShotNotReady(t *testing.T) {
	env := setupCLI(t)
	env.oldShot(t, "sh010", 2)

	out, err := env.run(t, "promote", "sh010")
	if err != nil {
		t.Fatalf("promote: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ineligible") {
		t.Fatalf("expected ineligible row:\n%s", out)
	}
}

func TestHistoryShowUnknownRun(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "history", "show", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDepsReportsChecks(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, "deps", "--json")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	var checks []checkJSON
	if err := json.Unmarshal([]byte(out), &checks); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(checks) != 4 {
		t.Fatalf("expected 4 checks, got %+v", checks)
	}
	for _, c := range checks {
		if !c.Passed {
			t.Fatalf("check %s failed: %s", c.Name, c.Detail)
		}
	}
}

func TestDepsFailsWithoutConverter(t *testing.T) {
	env := setupCLI(t)
	env.cfg.Converter.Binary = filepath.Join(testsupport.BaseDir(env.cfg), "missing", "oiiotool")
	data, _ := toml.Marshal(env.cfg)
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := env.run(t, "deps")
	if err == nil {
		t.Fatalf("expected deps failure:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected error line:\n%s", out)
	}
}

func TestWorkersFlagOverridesConfig(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, "--workers", "7", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "max_workers = 7") {
		t.Fatalf("expected workers override:\n%s", out)
	}
	if !strings.Contains(out, "# Loaded from "+env.configPath) {
		t.Fatalf("expected config path header:\n%s", out)
	}
}

func TestNegativeWorkersRejected(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "--workers=-1", "scan"); err == nil {
		t.Fatal("expected error for negative workers")
	}
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "test-notify"); err == nil || !strings.Contains(err.Error(), "ntfy topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLI(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(env.cfg.Paths.LogDir, "custom.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := env.run(t, "logs", "-n", "2", "--file", path)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "b\nc\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
