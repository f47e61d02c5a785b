package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sbsconv/internal/config"
	"sbsconv/internal/events"
	"sbsconv/internal/logging"
)

// Sink forwards selected domain events to a Service. Deliveries run in the
// background so slow ntfy servers never stall the event bus; Wait blocks
// until pending deliveries finish.
type Sink struct {
	svc     Service
	toggles config.Notifications
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewSink builds a sink honouring the per-event toggles in cfg.
func NewSink(svc Service, cfg config.Notifications, logger *slog.Logger) *Sink {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sink{
		svc:     svc,
		toggles: cfg,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
}

// Handle implements events.Sink.
func (s *Sink) Handle(e events.Event) {
	if s == nil || s.svc == nil {
		return
	}
	var deliver func(context.Context) error
	switch e.Kind {
	case events.ShotPromoted:
		if !s.toggles.Promotion {
			return
		}
		deliver = func(ctx context.Context) error { return s.svc.NotifyShotPromoted(ctx, e.Shot, e.Destination) }
	case events.RunFinished:
		if !s.toggles.RunComplete || e.Summary.Total == 0 {
			return
		}
		deliver = func(ctx context.Context) error { return s.svc.NotifyRunCompleted(ctx, e.Summary) }
	case events.Fatal:
		if !s.toggles.Errors {
			return
		}
		deliver = func(ctx context.Context) error { return s.svc.NotifyError(ctx, errors.New(e.Message), "conversion run") }
	case events.PromotionFailed:
		if !s.toggles.Errors {
			return
		}
		deliver = func(ctx context.Context) error {
			return s.svc.NotifyError(ctx, errors.New(e.Message), fmt.Sprintf("promotion of %s", e.Shot))
		}
	default:
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := deliver(ctx); err != nil {
			logging.WarnWithContext(s.logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(e.Kind)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "notification dropped"),
			)
		}
	}()
}

// Wait blocks until background deliveries complete.
func (s *Sink) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}
