package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConverter()
	c.normalizeLive()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceRoot, err = expandPath(strings.TrimSpace(c.Paths.SourceRoot)); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	if c.Paths.DestinationRoot, err = expandPath(strings.TrimSpace(c.Paths.DestinationRoot)); err != nil {
		return fmt.Errorf("paths.destination_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConverter() {
	c.Converter.Binary = strings.TrimSpace(c.Converter.Binary)
	if value, ok := os.LookupEnv("SBSCONV_CONVERTER"); ok && strings.TrimSpace(value) != "" {
		c.Converter.Binary = strings.TrimSpace(value)
	}
	if c.Converter.Binary == "" {
		c.Converter.Binary = defaultConverterBinary
	}
	if strings.HasPrefix(c.Converter.Binary, "~") {
		if expanded, err := expandPath(c.Converter.Binary); err == nil {
			c.Converter.Binary = expanded
		}
	}
	c.Converter.Compression = strings.ToLower(strings.TrimSpace(c.Converter.Compression))
	if c.Converter.Compression == "" {
		c.Converter.Compression = defaultCompression
	}
	c.Converter.PixelType = strings.ToLower(strings.TrimSpace(c.Converter.PixelType))
	if c.Converter.PixelType == "" {
		c.Converter.PixelType = defaultPixelType
	}
	if c.Converter.MaxWorkers == 0 {
		c.Converter.MaxWorkers = runtime.NumCPU()
	}
}

func (c *Config) normalizeLive() {
	if c.Live.PollIntervalSeconds == 0 {
		c.Live.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Live.IdleMultiplier == 0 {
		c.Live.IdleMultiplier = defaultIdleMultiplier
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
