package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateLive(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	source := strings.TrimSpace(c.Paths.SourceRoot)
	dest := strings.TrimSpace(c.Paths.DestinationRoot)
	if source != "" && dest != "" && source == dest {
		return errors.New("paths.destination_root must differ from paths.source_root")
	}
	if c.Live.Enabled && source == "" {
		return errors.New("paths.source_root must be set when live.enabled is true")
	}
	if c.Live.Enabled && dest == "" {
		return errors.New("paths.destination_root must be set when live.enabled is true")
	}
	return nil
}

func (c *Config) validateConverter() error {
	if !slices.Contains(Compressions, c.Converter.Compression) {
		return fmt.Errorf("converter.compression must be one of %s (got %q)", strings.Join(Compressions, ", "), c.Converter.Compression)
	}
	if !slices.Contains(PixelTypes, c.Converter.PixelType) {
		return fmt.Errorf("converter.pixel_type must be one of %s (got %q)", strings.Join(PixelTypes, ", "), c.Converter.PixelType)
	}
	if c.Converter.MaxWorkers <= 0 {
		return errors.New("converter.max_workers must be positive")
	}
	return nil
}

func (c *Config) validateLive() error {
	if err := ensurePositiveMap(map[string]int{
		"live.poll_interval_seconds": c.Live.PollIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Live.MinIdleDelaySeconds < 0 {
		return errors.New("live.min_idle_delay_seconds must be >= 0")
	}
	if c.Live.IdleMultiplier <= 0 {
		return errors.New("live.idle_multiplier must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
