package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"sbsconv/internal/config"
	"sbsconv/internal/events"
	"sbsconv/internal/history"
	"sbsconv/internal/logging"
	"sbsconv/internal/notifications"
	"sbsconv/internal/workflow"
)

type globalFlags struct {
	config   string
	source   string
	dest     string
	workers  int
	logLevel string
	logFile  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	// managerOptions are appended to every workflow manager; tests use it
	// to pin the clock.
	managerOptions []workflow.ManagerOption
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.source != "" || c.flags.dest != "" {
			if err := cfg.SetRoots(c.flags.source, c.flags.dest); err != nil {
				c.configErr = err
				return
			}
		}
		if c.flags.workers < 0 {
			c.configErr = fmt.Errorf("--workers must be positive (got %d)", c.flags.workers)
			return
		}
		if c.flags.workers > 0 {
			cfg.Converter.MaxWorkers = c.flags.workers
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// ensureLogger builds the console logger. When runLog is set on the first
// call and --log-file is empty, a per-run JSON log is written to log_dir
// and old run logs are pruned.
func (c *commandContext) ensureLogger(runLog bool) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := strings.TrimSpace(c.flags.logLevel)
		if level == "" {
			level = cfg.Logging.Level
		}
		filePath := strings.TrimSpace(c.flags.logFile)
		if filePath == "" && runLog {
			filePath = logging.RunLogPath(cfg.Paths.LogDir, time.Now())
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:       level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
			FilePath:    filePath,
		})
		if c.loggerErr == nil && runLog {
			logging.CleanupOldLogs(c.logger, cfg.Logging.RetentionDays,
				logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "sbsconv-*.log", Exclude: []string{filePath}},
			)
		}
	})
	return c.logger, c.loggerErr
}

// withManager builds a workflow manager wired to the history ledger, ntfy
// delivery, and any extra sinks, then runs fn. The live-mode lock is held
// for the duration so a CLI run never overlaps a daemon or another CLI run
// on the same state dir. Resources are released after fn returns.
func (c *commandContext) withManager(runLog bool, extra []events.Sink, fn func(*workflow.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return fmt.Errorf("another sbsconv instance holds %s: %w", cfg.LockPath(), workflow.ErrBusy)
	}
	defer lock.Unlock()

	logger, err := c.ensureLogger(runLog)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	sinks := append([]events.Sink(nil), extra...)
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable; this run will not be recorded", "history_open_failed",
				logging.Error(err),
				logging.String("path", cfg.HistoryPath()),
			)
		} else {
			defer store.Close()
			sinks = append(sinks, history.NewRecorder(store, cfg.Paths.SourceRoot, logger))
		}
	}
	notifySink := notifications.NewSink(notifications.NewService(cfg), cfg.Notifications, logger)
	defer notifySink.Wait()
	sinks = append(sinks, notifySink)

	opts := append([]workflow.ManagerOption{workflow.WithSinks(sinks...)}, c.managerOptions...)
	manager, err := workflow.NewManager(cfg, logger, opts...)
	if err != nil {
		return err
	}
	return fn(manager)
}

func (c *commandContext) requireSource() (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.SourceRoot) == "" {
		return nil, errors.New("source root not set; pass --source or set paths.source_root")
	}
	return cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
