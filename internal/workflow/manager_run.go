package workflow

import (
	"context"
	"errors"
	"time"

	"sbsconv/internal/logging"
)

// Start begins live mode: one pass immediately, then one per poll
// interval until Stop or ctx cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("live mode already running")
	}
	if m.destRoot == "" {
		m.mu.Unlock()
		return errors.New("live mode requires paths.destination_root")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLive(runCtx)
	return nil
}

// Stop terminates live mode and waits for the current pass to finish.
// In-flight frame conversions complete; unsubmitted frames are skipped.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether live mode is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runLive(ctx context.Context) {
	defer m.wg.Done()

	interval := m.cfg.PollInterval()
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m.logger.Info("live mode started",
		logging.String(logging.FieldEventType, "live_started"),
		logging.String("source_root", m.sourceRoot),
		logging.String("destination_root", m.destRoot),
		logging.Duration("poll_interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.livePass(ctx)
		select {
		case <-ctx.Done():
			m.logger.Info("live mode stopped", logging.String(logging.FieldEventType, "live_stopped"))
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) livePass(ctx context.Context) {
	err := m.Pass(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		m.logger.Debug("live pass skipped; previous operation still running")
	case errors.Is(err, context.Canceled):
	default:
		m.setLastError(err)
		logging.WarnWithContext(m.logger, "live pass failed", "live_pass_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the reported issue; the next pass retries"),
			logging.String(logging.FieldImpact, "conversion paused until the next poll"),
		)
	}
}
