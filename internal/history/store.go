package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sbsconv/internal/events"
)

// Store manages the history ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts a running run.
func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time, sourceRoot string, total int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, source_root, total, status) VALUES (?, ?, ?, ?, ?)`,
		id, formatTime(startedAt), sourceRoot, total, RunRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its summary.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, summary events.Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, done = ?, failed = ?, skipped = ?, status = ? WHERE id = ?`,
		formatTime(finishedAt), summary.Total, summary.Done, summary.Failed, summary.Skipped, statusFor(summary), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

func statusFor(summary events.Summary) RunStatus {
	switch {
	case summary.Canceled:
		return RunCanceled
	case summary.Failed > 0:
		return RunWithErrors
	default:
		return RunCompleted
	}
}

// RecordFailure stores one failed frame.
func (s *Store) RecordFailure(ctx context.Context, f FrameFailure) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO frame_failures (run_id, shot, frame, message, at) VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.Shot, f.Frame, nullableString(f.Message), formatTime(f.At),
	)
	if err != nil {
		return fmt.Errorf("insert frame failure: %w", err)
	}
	return nil
}

// RecordPromotion stores one promotion attempt.
func (s *Store) RecordPromotion(ctx context.Context, p Promotion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO promotions (shot, source, destination, result, message, at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Shot, nullableString(p.Source), nullableString(p.Destination), p.Result, nullableString(p.Message), formatTime(p.At),
	)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

// MarkInterrupted closes runs left running by a process that exited
// without finishing them. It returns the number of runs updated.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		RunInterrupted, formatTime(time.Now()), RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, source_root, total, done, failed, skipped, status
         FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by id. A missing run returns nil without error.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, source_root, total, done, failed, skipped, status
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Failures lists failed frames for a run in insertion order.
func (s *Store) Failures(ctx context.Context, runID string) ([]FrameFailure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, shot, frame, message, at FROM frame_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var failures []FrameFailure
	for rows.Next() {
		var (
			f       FrameFailure
			message sql.NullString
			at      string
		)
		if err := rows.Scan(&f.RunID, &f.Shot, &f.Frame, &message, &at); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.Message = message.String
		f.At = parseTime(at)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Promotions lists up to limit promotion attempts, newest first.
func (s *Store) Promotions(ctx context.Context, limit int) ([]Promotion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT shot, source, destination, result, message, at FROM promotions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promotions []Promotion
	for rows.Next() {
		var (
			p                            Promotion
			source, destination, message sql.NullString
			at                           string
		)
		if err := rows.Scan(&p.Shot, &source, &destination, &p.Result, &message, &at); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		p.Source = source.String
		p.Destination = destination.String
		p.Message = message.String
		p.At = parseTime(at)
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&run.SourceRoot,
		&run.Total,
		&run.Done,
		&run.Failed,
		&run.Skipped,
		&status,
	); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Status = RunStatus(status)
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
