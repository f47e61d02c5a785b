package workflow

import (
	"context"
	"fmt"
	"slices"

	"sbsconv/internal/conversion"
	"sbsconv/internal/events"
	"sbsconv/internal/framediff"
	"sbsconv/internal/logging"
	"sbsconv/internal/promotion"
	"sbsconv/internal/services"
	"sbsconv/internal/shot"
)

// Scan rescans the source root and publishes ScanCompleted.
func (m *Manager) Scan(ctx context.Context) ([]shot.Shot, error) {
	if !m.busy.TryLock() {
		return nil, ErrBusy
	}
	defer m.busy.Unlock()
	return m.scan(ctx), nil
}

// Convert converts the named shots, or every shot needing conversion when
// names is empty. It blocks until the run finishes and returns its summary.
// Ready shots are not promoted; use Promote or live mode for that.
func (m *Manager) Convert(ctx context.Context, names []string) (events.Summary, error) {
	if !m.busy.TryLock() {
		return events.Summary{}, ErrBusy
	}
	defer m.busy.Unlock()

	shots := m.scan(ctx)
	selected, err := selectShots(shots, names)
	if err != nil {
		return events.Summary{}, err
	}
	summary, err := m.convert(ctx, selected)
	if err != nil {
		return summary, err
	}
	m.scan(ctx)
	return summary, nil
}

// Promote promotes the named shots that pass the eligibility gate, or
// every ready shot when names is empty.
func (m *Manager) Promote(ctx context.Context, names []string) ([]promotion.Result, error) {
	if !m.busy.TryLock() {
		return nil, ErrBusy
	}
	defer m.busy.Unlock()

	shots := m.scan(ctx)
	var results []promotion.Result
	if len(names) == 0 {
		results = m.promoter.PromoteReady(ctx, shots)
	} else {
		results = m.promoter.PromoteSelected(ctx, shots, names)
	}
	m.publishPromotions(results)
	if len(results) > 0 {
		m.scan(ctx)
	}
	return results, nil
}

// Pass runs one live iteration: scan, convert outstanding frames, rescan,
// and promote ready shots.
func (m *Manager) Pass(ctx context.Context) error {
	if !m.busy.TryLock() {
		return ErrBusy
	}
	defer m.busy.Unlock()

	shots := m.scan(ctx)
	pending := pendingShots(shots)
	if len(pending) > 0 {
		if _, err := m.convert(ctx, pending); err != nil {
			return err
		}
		shots = m.scan(ctx)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	results := m.promoter.PromoteReady(ctx, shots)
	m.publishPromotions(results)
	if len(results) > 0 {
		m.scan(ctx)
	}

	m.mu.Lock()
	m.lastPass = m.now()
	m.mu.Unlock()
	return nil
}

func (m *Manager) scan(ctx context.Context) []shot.Shot {
	shots := m.scanner.Scan(ctx, m.sourceRoot, m.destRoot)

	complete, needs := 0, 0
	for _, s := range shots {
		if s.NeedsConversion() {
			needs++
		} else if s.FrameCount > 0 {
			complete++
		}
	}
	m.bus.Publish(events.Event{
		Kind:     events.ScanCompleted,
		At:       m.now(),
		Message:  fmt.Sprintf("%d shots, %d need conversion", len(shots), needs),
		Progress: events.Progress{Done: complete, Total: len(shots)},
	})

	m.mu.Lock()
	m.lastScan = shots
	m.mu.Unlock()
	return shots
}

func (m *Manager) convert(ctx context.Context, shots []shot.Shot) (events.Summary, error) {
	ch, err := m.scheduler.Convert(ctx, shots, conversion.Options{
		MaxWorkers:  m.cfg.Converter.MaxWorkers,
		CPUInterval: cpuSampleInterval,
		ETAWindow:   m.etaWindow,
	})
	if err != nil {
		details := services.Details(err)
		logging.ErrorWithContext(m.logger, "conversion pre-flight failed", "conversion_preflight_failed",
			logging.String("error_kind", details.Kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install oiiotool or set converter.binary"),
		)
		m.bus.Publish(events.Event{Kind: events.Fatal, At: m.now(), Level: events.LevelError, Message: details.Message})
		m.setLastError(err)
		return events.Summary{}, err
	}

	final, ok := m.bus.Drain(ch)
	if !ok {
		return events.Summary{}, services.Wrap(services.ErrTransient, "workflow", "convert", "run ended without a summary", nil)
	}
	summary := final.Summary
	m.mu.Lock()
	m.lastRun = &summary
	m.mu.Unlock()
	return summary, nil
}

func (m *Manager) publishPromotions(results []promotion.Result) {
	for _, result := range results {
		if e, ok := result.Event(m.now()); ok {
			m.bus.Publish(e)
		}
		if result.Err != nil {
			m.setLastError(result.Err)
		}
	}
}

// pendingShots returns the shots with outstanding frames on disk. Scan
// counts are not trusted here; the frame diff decides.
func pendingShots(shots []shot.Shot) []shot.Shot {
	var pending []shot.Shot
	for _, s := range shots {
		if s.Ghost {
			continue
		}
		if len(framediff.OutstandingIn(s.SourcePath, s.ConvertedDir())) > 0 {
			pending = append(pending, s)
		}
	}
	return pending
}

// selectShots resolves names against a scan. An empty selection means every
// shot needing conversion.
func selectShots(shots []shot.Shot, names []string) ([]shot.Shot, error) {
	if len(names) == 0 {
		return pendingShots(shots), nil
	}
	selected := make([]shot.Shot, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(shots, func(s shot.Shot) bool { return s.Name == name })
		if idx < 0 {
			return nil, services.Wrap(services.ErrNotFound, "workflow", "select shots",
				fmt.Sprintf("shot %q not found under source root", name), nil)
		}
		selected = append(selected, shots[idx])
	}
	return selected, nil
}
