// Package history records suite runs in a SQLite database so later runs can
// compare against them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

// ErrNoRuns is returned by Last when nothing has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// timeLayout is fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL UNIQUE,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	errored     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	invalid     INTEGER NOT NULL,
	pass_rate   REAL NOT NULL,
	success     INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL DEFAULT 0,
	report_path TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS steps (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	scenario    TEXT NOT NULL,
	step        INTEGER NOT NULL,
	case_id     TEXT NOT NULL,
	status      TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, scenario, step)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded suite run.
type Run struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Environment string
	Total       int
	Passed      int
	Failed      int
	Errored     int
	Skipped     int
	Invalid     int
	PassRate    float64
	Success     bool
	Cancelled   bool
	ReportPath  string
	Steps       []Step
}

// Step is the recorded outcome of one step of a run.
type Step struct {
	Scenario   string
	Step       int
	CaseID     string
	Status     string
	StatusCode int
	Duration   time.Duration
	Message    string
}

// FromSuite converts a suite result into a Run.
func FromSuite(result *runner.SuiteResult, environment, reportPath string) *Run {
	run := &Run{
		RunID:       result.RunID,
		StartedAt:   result.StartedAt,
		Duration:    result.Duration(),
		Environment: environment,
		Total:       result.Total(),
		Passed:      result.Passed,
		Failed:      result.Failed,
		Errored:     result.Errored,
		Skipped:     result.Skipped,
		Invalid:     len(result.ConfigErrors),
		PassRate:    result.PassRate(),
		Success:     result.Success(),
		Cancelled:   result.Cancelled,
		ReportPath:  reportPath,
	}

	for _, s := range result.Steps() {
		step := Step{
			Scenario: s.Scenario,
			Step:     s.Step,
			CaseID:   s.CaseID,
			Status:   string(s.Status),
			Duration: s.Duration,
		}
		if s.Response != nil {
			step.StatusCode = s.Response.StatusCode
		}
		switch {
		case len(s.Diffs) > 0:
			msgs := make([]string, len(s.Diffs))
			for i, d := range s.Diffs {
				msgs[i] = d.String()
			}
			step.Message = strings.Join(msgs, "; ")
		case s.SkipReason != "":
			step.Message = s.SkipReason
		default:
			step.Message = s.ErrorMessage()
		}
		run.Steps = append(run.Steps, step)
	}

	return run
}

// Store is a SQLite backed run history.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the history database. path may be a plain file
// path or carry a sqlite:// or sqlite: prefix.
func Open(path string) (*Store, error) {
	dsn := parseConnectionString(path)
	if dsn == "" {
		return nil, fmt.Errorf("history database path is empty")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

func parseConnectionString(connStr string) string {
	connStr = strings.TrimSpace(connStr)
	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://")
	}
	return strings.TrimPrefix(connStr, "sqlite:")
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores run and its steps in one transaction.
func (s *Store) Record(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, duration_ms, environment, total, passed, failed, errored, skipped, invalid, pass_rate, success, cancelled, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(), run.Environment,
		run.Total, run.Passed, run.Failed, run.Errored, run.Skipped, run.Invalid,
		run.PassRate, run.Success, run.Cancelled, run.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO steps
		(run_id, scenario, step, case_id, status, status_code, duration_ms, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range run.Steps {
		if _, err := stmt.ExecContext(ctx, run.RunID, st.Scenario, st.Step, st.CaseID,
			st.Status, st.StatusCode, st.Duration.Milliseconds(), st.Message); err != nil {
			return fmt.Errorf("failed to record step %s: %w", st.CaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.RunID, err)
	}
	return nil
}

const runColumns = `run_id, started_at, duration_ms, environment, total, passed, failed, errored, skipped, invalid, pass_rate, success, cancelled, report_path`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		durationMs int64
	)
	if err := row.Scan(&run.RunID, &startedAt, &durationMs, &run.Environment,
		&run.Total, &run.Passed, &run.Failed, &run.Errored, &run.Skipped, &run.Invalid,
		&run.PassRate, &run.Success, &run.Cancelled, &run.ReportPath); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	run.StartedAt = t
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// Last returns the most recent run without its steps, or ErrNoRuns.
func (s *Store) Last(ctx context.Context) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first, without their steps.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Get returns one run with its steps.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT scenario, step, case_id, status, status_code, duration_ms, message
		FROM steps WHERE run_id = ? ORDER BY scenario, step`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st         Step
			durationMs int64
		)
		if err := rows.Scan(&st.Scenario, &st.Step, &st.CaseID, &st.Status, &st.StatusCode, &durationMs, &st.Message); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		st.Duration = time.Duration(durationMs) * time.Millisecond
		run.Steps = append(run.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return run, nil
}

// Prune deletes all but the keep most recent runs and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `SELECT run_id FROM runs ORDER BY started_at DESC, id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("failed to prune steps: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}
