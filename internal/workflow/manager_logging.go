package workflow

import (
	"log/slog"

	"sbsconv/internal/events"
	"sbsconv/internal/logging"
)

// logSink writes bus events that no component already logs. Overall
// progress is throttled to one line per 10% step.
type logSink struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func newLogSink(logger *slog.Logger) *logSink {
	return &logSink{
		logger:  logging.NewComponentLogger(logger, "events"),
		sampler: logging.NewProgressSampler(10),
	}
}

func (s *logSink) Handle(e events.Event) {
	logger := s.logger
	if e.RunID != "" {
		logger = logger.With(logging.String(logging.FieldRunID, e.RunID))
	}
	if e.Shot != "" {
		logger = logger.With(logging.Shot(e.Shot))
	}

	switch e.Kind {
	case events.RunStarted:
		s.sampler.Reset()
	case events.Log:
		switch e.Level {
		case events.LevelError:
			logger.Error(e.Message, logging.EventType("conversion_log"))
		case events.LevelWarn:
			logger.Warn(e.Message, logging.EventType("conversion_log"))
		default:
			logger.Info(e.Message, logging.EventType("conversion_log"))
		}
	case events.OverallProgress:
		percent := e.Progress.Percent()
		if !s.sampler.ShouldLog(e.RunID, percent) {
			return
		}
		logger.Info("conversion progress",
			logging.EventType("conversion_progress"),
			logging.Int("done", e.Progress.Done),
			logging.Int("total", e.Progress.Total),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.String(logging.FieldProgressETA, events.FormatETA(e.Progress.ETA)),
		)
	case events.ShotProgress:
		logger.Debug("shot progress",
			logging.Int("done", e.Progress.Done),
			logging.Int("total", e.Progress.Total),
		)
	case events.CPUSample:
		logger.Debug("converter cpu",
			logging.Float64("cpu_percent", e.CPU.Percent),
			logging.Float64("busy_threads", e.CPU.Threads),
		)
	case events.ScanCompleted:
		logger.Debug("scan completed",
			logging.EventType("scan_completed"),
			logging.Int("shots", e.Progress.Total),
			logging.Int("complete", e.Progress.Done),
		)
	}
}
