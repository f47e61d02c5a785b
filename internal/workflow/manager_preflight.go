package workflow

import (
	"context"
	"fmt"
	"strings"

	"sbsconv/internal/logging"
	"sbsconv/internal/preflight"
	"sbsconv/internal/services"
)

// advisoryChecks report problems without blocking live mode.
var advisoryChecks = map[string]bool{
	"ntfy":             true,
	"Destination root": true,
}

// Preflight validates the roots and converter before live mode starts.
// Returns nil when all blocking checks pass, or an error describing every
// blocking failure.
func (m *Manager) Preflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, m.cfg)

	var failures []string
	for _, r := range results {
		switch {
		case r.Passed:
			m.logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		case advisoryChecks[r.Name]:
			logging.WarnWithContext(m.logger, "preflight check failed", "preflight_warning",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "promotion and notifications retry on every pass"),
				logging.String(logging.FieldImpact, "live mode continues"),
			)
		default:
			logging.ErrorWithContext(m.logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "fix the reported issue and restart"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}

	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			strings.Join(failures, "; "), nil)
	}
	return nil
}
