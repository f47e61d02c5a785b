package services

import "context"

type contextKey string

const (
	shotKey      contextKey = "shot"
	runIDKey     contextKey = "run_id"
	componentKey contextKey = "component"
)

// WithShot annotates context with the shot being processed.
func WithShot(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, shotKey, name)
}

// ShotFromContext extracts the shot name if present.
func ShotFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(shotKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the conversion run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the conversion run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithComponent annotates context with the emitting component name.
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
