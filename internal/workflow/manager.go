package workflow

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sbsconv/internal/config"
	"sbsconv/internal/conversion"
	"sbsconv/internal/converter"
	"sbsconv/internal/deps"
	"sbsconv/internal/events"
	"sbsconv/internal/logging"
	"sbsconv/internal/promotion"
	"sbsconv/internal/scanner"
	"sbsconv/internal/shot"
)

// ErrBusy is returned when a scan, conversion, or promotion is already in
// progress.
var ErrBusy = errors.New("workflow busy")

const cpuSampleInterval = 2 * time.Second

// Manager coordinates scanning, conversion, and promotion for one pair of
// roots.
type Manager struct {
	cfg        *config.Config
	sourceRoot string
	destRoot   string
	logger     *slog.Logger
	now        func() time.Time

	scanner   *scanner.Scanner
	scheduler *conversion.Scheduler
	promoter  *promotion.Promoter
	bus       *events.Bus
	etaWindow int

	busy sync.Mutex

	mu       sync.RWMutex
	running  bool
	cancel   func()
	wg       sync.WaitGroup
	lastErr  error
	lastScan []shot.Shot
	lastRun  *events.Summary
	lastPass time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	converter conversion.Converter
	oracle    scanner.SyncOracle
	sinks     []events.Sink
	now       func() time.Time
	etaWindow int
}

// WithConverter replaces the oiiotool client (used in tests).
func WithConverter(conv conversion.Converter) ManagerOption {
	return func(o *managerOptions) { o.converter = conv }
}

// WithSyncOracle replaces the default progress-derived sync policy.
func WithSyncOracle(oracle scanner.SyncOracle) ManagerOption {
	return func(o *managerOptions) { o.oracle = oracle }
}

// WithSinks subscribes sinks to the event bus at construction.
func WithSinks(sinks ...events.Sink) ManagerOption {
	return func(o *managerOptions) { o.sinks = append(o.sinks, sinks...) }
}

// WithClock overrides the time source for promotion decisions.
func WithClock(now func() time.Time) ManagerOption {
	return func(o *managerOptions) { o.now = now }
}

// WithETAWindow enables the moving-average ETA over the last n frames.
func WithETAWindow(n int) ManagerOption {
	return func(o *managerOptions) { o.etaWindow = n }
}

// NewManager constructs a manager for cfg. The converter binary is not
// required to exist yet; conversion runs fail pre-flight when it is
// missing.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	options := &managerOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if options.now == nil {
		options.now = time.Now
	}

	conv := options.converter
	if conv == nil {
		client, err := newConverterClient(cfg)
		if err != nil {
			return nil, err
		}
		conv = client
	}

	scanOpts := []scanner.Option{scanner.WithLogger(logger)}
	if options.oracle != nil {
		scanOpts = append(scanOpts, scanner.WithSyncOracle(options.oracle))
	}

	promoter := promotion.New(cfg.Paths.SourceRoot, cfg.Paths.DestinationRoot,
		promotion.Policy{MinDelay: cfg.MinIdleDelay(), Multiplier: cfg.Live.IdleMultiplier},
		promotion.WithLogger(logger),
		promotion.WithClock(options.now),
	)

	m := &Manager{
		cfg:        cfg,
		sourceRoot: cfg.Paths.SourceRoot,
		destRoot:   cfg.Paths.DestinationRoot,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		now:        options.now,
		scanner:    scanner.New(scanOpts...),
		scheduler:  conversion.New(conv, conversion.WithLogger(logger)),
		promoter:   promoter,
		etaWindow:  options.etaWindow,
	}
	m.bus = events.NewBus(newLogSink(logger))
	for _, sink := range options.sinks {
		m.bus.Subscribe(sink)
	}
	return m, nil
}

func newConverterClient(cfg *config.Config) (*converter.Client, error) {
	binary, err := deps.ResolveConverter(cfg.Converter.Binary)
	if err != nil {
		binary = strings.TrimSpace(cfg.Converter.Binary)
		if binary == "" {
			binary = deps.ConverterName
		}
	}
	return converter.New(binary, converter.Settings{
		Compression: cfg.Converter.Compression,
		PixelType:   cfg.Converter.PixelType,
	})
}

// Events returns the bus for subscribing additional sinks.
func (m *Manager) Events() *events.Bus {
	return m.bus
}

// SourceRoot returns the configured source root.
func (m *Manager) SourceRoot() string {
	return m.sourceRoot
}

// DestinationRoot returns the configured destination root.
func (m *Manager) DestinationRoot() string {
	return m.destRoot
}
