package testsupport

import (
	"path/filepath"
	"testing"

	"sbsconv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Source and destination roots live under the same temp base.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceRoot = filepath.Join(base, "shots")
	cfgVal.Paths.DestinationRoot = filepath.Join(base, "comp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Converter.MaxWorkers = 2
	cfgVal.Live.MinIdleDelaySeconds = 0
	cfgVal.Live.IdleMultiplier = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides the converter worker bound.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Converter.MaxWorkers = n
	}
}

// WithStubConverter installs the copying stub converter and points the
// config at it.
func WithStubConverter() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Converter.Binary = writeStubConverter(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// WithIdle sets the idle heuristic parameters.
func WithIdle(minDelaySeconds int, multiplier float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Live.MinIdleDelaySeconds = minDelaySeconds
		b.cfg.Live.IdleMultiplier = multiplier
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SourceRoot)
}
