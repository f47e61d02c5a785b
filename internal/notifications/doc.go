// Package notifications delivers conversion and promotion milestones via
// ntfy.
//
// The ntfy implementation publishes to the topic URL configured in
// config.toml and degrades to a no-op when no topic is set. Sink adapts
// the service to the domain event bus and applies the per-event toggles.
package notifications
