// Package scanner reconciles the source root, the destination root and the
// status ledger into a sorted snapshot of shots.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sbsconv/internal/framediff"
	"sbsconv/internal/logging"
	"sbsconv/internal/shot"
	"sbsconv/internal/statusstore"
)

var skippedDirs = map[string]struct{}{
	"__pycache__": {},
	".sbs_cache":  {},
}

// Scanner walks shot roots. The zero value is not usable; call New.
type Scanner struct {
	oracle SyncOracle
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithSyncOracle replaces the default ProgressSync policy.
func WithSyncOracle(oracle SyncOracle) Option {
	return func(s *Scanner) {
		if oracle != nil {
			s.oracle = oracle
		}
	}
}

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logging.NewComponentLogger(logger, "scanner")
	}
}

// New constructs a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{oracle: ProgressSync{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the shots under sourceRoot sorted by name and rewrites the
// status ledger. destRoot may be empty when no destination is configured.
// A missing or unreadable root yields an empty snapshot.
func (s *Scanner) Scan(ctx context.Context, sourceRoot, destRoot string) []shot.Shot {
	entries, err := os.ReadDir(sourceRoot)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "source root unreadable; treating as empty", "scan_root_unreadable",
				logging.String("source_root", sourceRoot),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the source root"),
				logging.String(logging.FieldImpact, "no shots listed"),
			)
		}
		return []shot.Shot{}
	}

	records := statusstore.Load(sourceRoot)
	shots := make([]shot.Shot, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			return sortShots(shots)
		}
		if !entry.IsDir() || skipDir(entry.Name()) {
			continue
		}
		current := s.inspect(sourceRoot, destRoot, entry.Name())
		seen[current.Name] = struct{}{}
		shots = append(shots, current)
	}

	for name, record := range records {
		if _, ok := seen[name]; ok {
			continue
		}
		if ghost, ok := ghostFromRecord(sourceRoot, name, record); ok {
			shots = append(shots, ghost)
		}
	}

	sortShots(shots)

	updated := make(map[string]statusstore.Record, len(shots))
	for _, current := range shots {
		updated[current.Name] = statusstore.FromShot(current)
	}
	if err := statusstore.Save(sourceRoot, updated); err != nil {
		logging.WarnWithContext(s.logger, "status store save failed", "status_store_save_failed",
			logging.String("source_root", sourceRoot),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check write access to the source root"),
			logging.String(logging.FieldImpact, "ledger keeps previous contents until the next scan"),
		)
	}

	s.logger.Debug("scan complete",
		logging.String("source_root", sourceRoot),
		logging.Int("shots", len(shots)),
	)
	return shots
}

// Lookup returns the named shot from a fresh scan.
func (s *Scanner) Lookup(ctx context.Context, sourceRoot, destRoot, name string) (shot.Shot, bool) {
	for _, current := range s.Scan(ctx, sourceRoot, destRoot) {
		if current.Name == name {
			return current, true
		}
	}
	return shot.Shot{}, false
}

func (s *Scanner) inspect(sourceRoot, destRoot, name string) shot.Shot {
	current := shot.Shot{
		Name:       name,
		SourcePath: filepath.Join(sourceRoot, name),
	}
	current.FrameCount = framediff.Count(current.SourcePath)

	switch {
	case destRoot != "" && isDir(shot.DestinationDir(destRoot, name)):
		current.IsMoved = true
		current.MovedPath = destRoot
		current.Location = shot.LocationDestination
		current.ConvertedCount = framediff.ConvertedIn(current.SourcePath, shot.DestinationDir(destRoot, name))
	case isDir(shot.BesideDir(current.SourcePath)):
		current.Location = shot.LocationBeside
		current.ConvertedCount = framediff.ConvertedIn(current.SourcePath, shot.BesideDir(current.SourcePath))
	default:
		// Tagged frames inside the source dir mark the legacy layout.
		if framediff.CountConverted(current.SourcePath) > 0 {
			current.Location = shot.LocationLegacy
			current.ConvertedCount = framediff.ConvertedIn(current.SourcePath, current.SourcePath)
		}
	}

	current.SyncStatus, current.SyncProgress = s.oracle.Sync(current)
	return current
}

func ghostFromRecord(sourceRoot, name string, record statusstore.Record) (shot.Shot, bool) {
	if !record.IsMoved || strings.TrimSpace(record.MovedPath) == "" {
		return shot.Shot{}, false
	}
	sourcePath := record.Path
	if sourcePath == "" {
		sourcePath = filepath.Join(sourceRoot, name)
	}
	if isDir(sourcePath) || !isDir(shot.DestinationDir(record.MovedPath, name)) {
		return shot.Shot{}, false
	}
	ghost := record.ToShot(name)
	ghost.SourcePath = sourcePath
	ghost.Ghost = true
	return ghost, true
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := skippedDirs[name]; ok {
		return true
	}
	return shot.IsConvertedDir(name)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func sortShots(shots []shot.Shot) []shot.Shot {
	sort.Slice(shots, func(i, j int) bool { return shots[i].Name < shots[j].Name })
	return shots
}
