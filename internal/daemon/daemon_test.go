package daemon_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"sbsconv/internal/config"
	"sbsconv/internal/daemon"
	"sbsconv/internal/history"
	"sbsconv/internal/logging"
	"sbsconv/internal/testsupport"
	"sbsconv/internal/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubConverter())
	cfg.Live.Enabled = true
	cfg.Live.PollIntervalSeconds = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.SourceRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	logger := logging.NewNop()
	mgr, err := workflow.NewManager(cfg, logger, workflow.WithSinks(history.NewRecorder(store, cfg.Paths.SourceRoot, logger)))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running || status.LockFilePath != cfg.LockPath() || status.HistoryPath != cfg.HistoryPath() {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestStartFailsPreflightWithoutSourceRoot(t *testing.T) {
	cfg := testConfig(t)
	if err := os.RemoveAll(cfg.Paths.SourceRoot); err != nil {
		t.Fatalf("remove source: %v", err)
	}
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected preflight failure")
	}
	if d.Status().Running {
		t.Fatal("daemon must not run after preflight failure")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newDaemon(t, testConfig(t))
	ok, message, err := d.TestNotification(context.Background())
	if ok || err != nil || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result %v %q %v", ok, message, err)
	}
}
