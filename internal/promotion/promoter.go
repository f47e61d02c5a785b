package promotion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"sbsconv/internal/events"
	"sbsconv/internal/fileutil"
	"sbsconv/internal/logging"
	"sbsconv/internal/services"
	"sbsconv/internal/shot"
	"sbsconv/internal/statusstore"
)

// moveDir is swapped in tests.
var moveDir = fileutil.MoveDir

// Outcome is the result class of one promotion attempt.
type Outcome string

const (
	Promoted   Outcome = "promoted"
	Skipped    Outcome = "skipped"
	Failed     Outcome = "failed"
	Ineligible Outcome = "ineligible"
)

// Result reports one promotion attempt.
type Result struct {
	Shot        string
	Outcome     Outcome
	Source      string
	Destination string
	Message     string
	Err         error
}

// Event converts the result into a domain event. Ineligible results have
// no event and report false.
func (r Result) Event(at time.Time) (events.Event, bool) {
	e := events.Event{At: at, Shot: r.Shot, Source: r.Source, Destination: r.Destination, Message: r.Message}
	switch r.Outcome {
	case Promoted:
		e.Kind = events.ShotPromoted
	case Skipped:
		e.Kind = events.PromotionSkipped
		e.Level = events.LevelWarn
	case Failed:
		e.Kind = events.PromotionFailed
		e.Level = events.LevelError
	default:
		return events.Event{}, false
	}
	return e, true
}

// Option configures a Promoter.
type Option func(*Promoter)

// WithLogger sets the promoter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Promoter) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "promotion")
		}
	}
}

// WithClock overrides the time source used by PromoteReady.
func WithClock(now func() time.Time) Option {
	return func(p *Promoter) {
		if now != nil {
			p.now = now
		}
	}
}

// Promoter moves ready shots from sourceRoot into destRoot.
type Promoter struct {
	sourceRoot string
	destRoot   string
	policy     Policy
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a promoter. An empty destRoot disables promotion; every
// shot then evaluates as ineligible.
func New(sourceRoot, destRoot string, policy Policy, opts ...Option) *Promoter {
	p := &Promoter{
		sourceRoot: sourceRoot,
		destRoot:   strings.TrimSpace(destRoot),
		policy:     policy,
		logger:     logging.NewComponentLogger(nil, "promotion"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate applies the policy to s at now.
func (p *Promoter) Evaluate(s shot.Shot, now time.Time) Decision {
	if p.destRoot == "" && !s.IsMoved {
		return Decision{State: shot.Active, Reason: "no destination root configured"}
	}
	return p.policy.Evaluate(s, now)
}

// Promote moves the converted directory of s into the destination root.
// The destination is re-checked immediately before the move; an existing
// destination is skipped without touching the status store. A failed move
// leaves the shot ReadyToMove so the next pass retries it.
func (p *Promoter) Promote(ctx context.Context, s shot.Shot) Result {
	logger := logging.WithContext(services.WithShot(ctx, s.Name), p.logger)
	src := shot.BesideDir(s.SourcePath)
	dst := shot.DestinationDir(p.destRoot, s.Name)
	result := Result{Shot: s.Name, Source: src, Destination: dst}

	if p.destRoot == "" {
		result.Outcome = Ineligible
		result.Message = "no destination root configured"
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Outcome = Failed
		result.Err = err
		result.Message = "promotion canceled"
		return result
	}

	if _, err := os.Lstat(dst); err == nil {
		return p.skip(logger, result)
	}

	if err := moveDir(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return p.skip(logger, result)
		}
		result.Outcome = Failed
		result.Err = services.Wrap(services.ErrTransient, "promotion", "move", "move converted directory", err)
		result.Message = err.Error()
		logging.WarnWithContext(logger, "promotion failed; will retry", "promotion_failed",
			logging.String("source", src),
			logging.String("destination", dst),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the destination root is mounted and writable"),
			logging.String(logging.FieldImpact, "shot stays ready to move until the next pass"),
		)
		return result
	}

	if err := statusstore.MarkMoved(p.sourceRoot, s.Name, p.destRoot); err != nil {
		logging.WarnWithContext(logger, "status store update after promotion failed", "status_store_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check write access to the source root"),
			logging.String(logging.FieldImpact, "the next scan records the move from the destination"),
		)
	}
	result.Outcome = Promoted
	result.Message = fmt.Sprintf("Moved %s to %s", s.Name, dst)
	logger.Info("shot promoted",
		logging.String(logging.FieldEventType, "shot_promoted"),
		logging.String("source", src),
		logging.String("destination", dst),
		logging.Int("frames", s.FrameCount),
	)
	return result
}

func (p *Promoter) skip(logger *slog.Logger, result Result) Result {
	result.Outcome = Skipped
	result.Message = fmt.Sprintf("destination %s already exists", result.Destination)
	logging.WarnWithContext(logger, "promotion skipped; destination exists", "promotion_skipped",
		logging.String("destination", result.Destination),
		logging.String(logging.FieldErrorHint, "remove or rename the existing destination folder"),
		logging.String(logging.FieldImpact, "shot stays in the source root"),
	)
	return result
}

// PromoteReady evaluates every shot and promotes those that are ready.
// Only attempted promotions are returned.
func (p *Promoter) PromoteReady(ctx context.Context, shots []shot.Shot) []Result {
	now := p.now()
	var results []Result
	for _, s := range shots {
		if ctx.Err() != nil {
			break
		}
		decision := p.Evaluate(s, now)
		if !decision.Ready() {
			p.logger.Debug("shot not ready",
				logging.Shot(s.Name),
				logging.String("state", decision.State.String()),
				logging.String("reason", decision.Reason),
			)
			continue
		}
		results = append(results, p.Promote(ctx, s))
	}
	return results
}

// PromoteSelected promotes the named shots that pass the same eligibility
// gate as live mode. Unknown or ineligible names yield Ineligible results.
func (p *Promoter) PromoteSelected(ctx context.Context, shots []shot.Shot, names []string) []Result {
	byName := make(map[string]shot.Shot, len(shots))
	for _, s := range shots {
		byName[s.Name] = s
	}
	now := p.now()
	results := make([]Result, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			results = append(results, Result{Shot: name, Outcome: Ineligible, Message: "unknown shot"})
			continue
		}
		decision := p.Evaluate(s, now)
		if !decision.Ready() {
			results = append(results, Result{
				Shot:    name,
				Outcome: Ineligible,
				Message: fmt.Sprintf("%s (%s)", decision.State, decision.Reason),
			})
			continue
		}
		results = append(results, p.Promote(ctx, s))
	}
	return results
}
