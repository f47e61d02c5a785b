// Package config loads, normalizes, and validates sbsconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SBSCONV_CONVERTER. The Config type centralizes every knob the scheduler,
// the promotion state machine, and the CLI need: source and destination
// roots, converter options, live-mode timing, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved worker count, and clear validation errors.
package config
