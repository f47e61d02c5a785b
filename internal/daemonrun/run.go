package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sbsconv/internal/config"
	"sbsconv/internal/daemon"
	"sbsconv/internal/deps"
	"sbsconv/internal/events"
	"sbsconv/internal/history"
	"sbsconv/internal/logging"
	"sbsconv/internal/notifications"
	"sbsconv/internal/workflow"
)

// Options configures live runtime behavior.
type Options struct {
	LogLevel    string
	LogFile     string
	Development bool
	// Sinks receive workflow events in addition to history and ntfy.
	Sinks []events.Sink
	// ManagerOptions are appended when constructing the workflow manager.
	ManagerOptions []workflow.ManagerOption
}

// Run starts live mode and blocks until ctx is canceled or SIGINT/SIGTERM
// arrives. It returns daemon.ErrAlreadyRunning when another instance holds
// the lock.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	logPath := strings.TrimSpace(opts.LogFile)
	if logPath == "" {
		logPath = logging.RunLogPath(cfg.Paths.LogDir, started)
	}
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update live.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "sbsconv-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.StateDir, "sbsconv.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var store *history.Store
	sinks := append([]events.Sink(nil), opts.Sinks...)
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable; runs will not be recorded", "history_open_failed",
				logging.Error(err),
				logging.String("path", cfg.HistoryPath()),
				logging.String(logging.FieldErrorHint, "check permissions on paths.state_dir"),
			)
			store = nil
		} else {
			sinks = append(sinks, history.NewRecorder(store, cfg.Paths.SourceRoot, logger))
		}
	}

	notifySink := notifications.NewSink(notifications.NewService(cfg), cfg.Notifications, logger)
	defer notifySink.Wait()
	sinks = append(sinks, notifySink)

	managerOpts := append([]workflow.ManagerOption{workflow.WithSinks(sinks...)}, opts.ManagerOptions...)
	manager, err := workflow.NewManager(cfg, logger, managerOpts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create workflow: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "live mode failed to start", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `sbsconv deps` to check the converter and shot roots"),
			logging.String(logging.FieldImpact, "shots will not be converted or promoted"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("sbsconv live mode shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "live.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	status := deps.CheckConverter(cfg.Converter.Binary)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("converter_available", status.Available),
		logging.String("converter_binary", status.Command),
		logging.String("source_root", cfg.Paths.SourceRoot),
		logging.String("destination_root", cfg.Paths.DestinationRoot),
		logging.Int("max_workers", cfg.Converter.MaxWorkers),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("history_enabled", cfg.History.Enabled),
	)
}
