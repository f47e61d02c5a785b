package workflow

import (
	"time"

	"sbsconv/internal/events"
	"sbsconv/internal/shot"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	LastError string
	LastPass  time.Time
	Shots     []shot.Shot
	LastRun   *events.Summary
}

// Status returns the latest workflow information without scanning.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := StatusSummary{
		Running:  m.running,
		LastPass: m.lastPass,
		Shots:    append([]shot.Shot(nil), m.lastScan...),
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastRun != nil {
		run := *m.lastRun
		summary.LastRun = &run
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
