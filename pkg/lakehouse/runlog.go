package lakehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunRunning = "RUNNING"
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"
)

// Run carries the lineage identity of one pipeline execution plus the
// metrics it accumulates. RunDate and RunID are stamped onto every output
// row and partition the HISTORY zones; they have no effect on
// reconciliation logic.
type Run struct {
	Pipeline  string
	RunDate   string
	RunID     string
	StartedAt time.Time
	Metrics   map[string]any
}

// Partitions returns the standard run lineage partitions for this run.
func (r *Run) Partitions() []Partition {
	return RunPartitions(r.RunDate, r.RunID)
}

// RunLog is the sqlite-backed run registry. Every pipeline records one row
// per run; the registry is the audit trail operators check when a "latest"
// output is missing.
type RunLog struct {
	sql *sql.DB
}

// OpenRunLog opens (and if needed creates) the registry database.
func OpenRunLog(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY,
  pipeline    TEXT NOT NULL,
  run_id      TEXT NOT NULL,
  run_date    TEXT NOT NULL,
  started_at  DATETIME NOT NULL,
  ended_at    DATETIME,
  status      TEXT NOT NULL CHECK (status IN ('RUNNING','SUCCESS','FAILED')),
  message     TEXT,
  metrics     TEXT NOT NULL DEFAULT '{}',
  UNIQUE(pipeline, run_id)
);
CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline, started_at);
	`); err != nil {
		return nil, err
	}
	return &RunLog{sql: db}, nil
}

func (l *RunLog) Close() error {
	if l == nil || l.sql == nil {
		return nil
	}
	return l.sql.Close()
}

// Start allocates a new run identity and records it as RUNNING.
func (l *RunLog) Start(ctx context.Context, pipeline string) (*Run, error) {
	now := time.Now().UTC()
	run := &Run{
		Pipeline:  pipeline,
		RunDate:   now.Format("2006-01-02"),
		RunID:     now.Format("20060102T150405Z"),
		StartedAt: now,
		Metrics:   map[string]any{},
	}
	_, err := l.sql.ExecContext(ctx,
		`INSERT INTO runs(pipeline, run_id, run_date, started_at, status) VALUES(?,?,?,?,?)`,
		run.Pipeline, run.RunID, run.RunDate, run.StartedAt, RunRunning)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	return run, nil
}

// Succeed marks the run SUCCESS and persists its metrics.
func (l *RunLog) Succeed(ctx context.Context, run *Run, message string) error {
	return l.finish(ctx, run, RunSuccess, message)
}

// Fail marks the run FAILED with the error message.
func (l *RunLog) Fail(ctx context.Context, run *Run, message string) error {
	return l.finish(ctx, run, RunFailed, message)
}

func (l *RunLog) finish(ctx context.Context, run *Run, status, message string) error {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}
	_, err = l.sql.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, status = ?, message = ?, metrics = ? WHERE pipeline = ? AND run_id = ?`,
		time.Now().UTC(), status, message, string(metrics), run.Pipeline, run.RunID)
	if err != nil {
		return fmt.Errorf("record run %s: %w", status, err)
	}
	return nil
}

// RunRecord is one registry row as read back for display.
type RunRecord struct {
	Pipeline  string
	RunID     string
	RunDate   string
	StartedAt time.Time
	EndedAt   time.Time
	Status    string
	Message   string
	Metrics   string
}

// Recent lists the most recent runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := l.sql.QueryContext(ctx,
		`SELECT pipeline, run_id, run_date, started_at, COALESCE(ended_at, started_at), status, COALESCE(message, ''), metrics
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.Pipeline, &rec.RunID, &rec.RunDate, &rec.StartedAt, &rec.EndedAt, &rec.Status, &rec.Message, &rec.Metrics); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
