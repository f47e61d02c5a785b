package history

import (
	"context"
	"log/slog"
	"time"

	"sbsconv/internal/events"
	"sbsconv/internal/logging"
)

const writeTimeout = 5 * time.Second

// Recorder is an events.Sink that writes runs, failed frames, and
// promotion attempts to the store. Write errors are logged and dropped.
type Recorder struct {
	store      *Store
	sourceRoot string
	logger     *slog.Logger
}

// NewRecorder builds a recorder for runs over sourceRoot.
func NewRecorder(store *Store, sourceRoot string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:      store,
		sourceRoot: sourceRoot,
		logger:     logging.NewComponentLogger(logger, "history"),
	}
}

// Handle implements events.Sink.
func (r *Recorder) Handle(e events.Event) {
	if r == nil || r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch e.Kind {
	case events.RunStarted:
		err = r.store.StartRun(ctx, e.RunID, at(e), r.sourceRoot, e.Progress.Total)
	case events.JobFailed:
		err = r.store.RecordFailure(ctx, FrameFailure{
			RunID:   e.RunID,
			Shot:    e.Shot,
			Frame:   e.Frame,
			Message: e.Message,
			At:      at(e),
		})
	case events.RunFinished:
		err = r.store.FinishRun(ctx, e.RunID, at(e), e.Summary)
	case events.ShotPromoted, events.PromotionSkipped, events.PromotionFailed:
		err = r.store.RecordPromotion(ctx, Promotion{
			Shot:        e.Shot,
			Source:      e.Source,
			Destination: e.Destination,
			Result:      promotionResult(e.Kind),
			Message:     e.Message,
			At:          at(e),
		})
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
			logging.String("event", string(e.Kind)),
			logging.String(logging.FieldRunID, e.RunID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "conversion continues without an audit record"),
		)
	}
}

func promotionResult(kind events.Kind) string {
	switch kind {
	case events.ShotPromoted:
		return "promoted"
	case events.PromotionSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

func at(e events.Event) time.Time {
	if e.At.IsZero() {
		return time.Now()
	}
	return e.At
}
