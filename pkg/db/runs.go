package db

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	StageCrawl = "crawl"
	StageClip  = "clip"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is a journal row with its per-run counters.
type Run struct {
	RunID         int64
	Stage         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        string
	ErrorMessage  string
	Lookups       int
	FailedLookups int
	Clips         int
	FailedClips   int
}

// StartRun inserts a running row for stage and returns its id.
func (db *DB) StartRun(stage string) (int64, error) {
	result, err := db.Exec(`INSERT INTO runs (stage, started_at, status) VALUES (?, ?, ?)`,
		stage, time.Now().UTC(), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun closes a run. A non-nil runErr marks it failed.
func (db *DB) FinishRun(runID int64, runErr error) error {
	status := StatusCompleted
	var msg sql.NullString
	if runErr != nil {
		status = StatusFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := db.Exec(`UPDATE runs SET finished_at = ?, status = ?, error_message = ? WHERE run_id = ?`,
		time.Now().UTC(), status, msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

const runColumns = `
	r.run_id, r.stage, r.started_at, r.finished_at, r.status, COALESCE(r.error_message, ''),
	(SELECT COUNT(*) FROM lookups l WHERE l.run_id = r.run_id),
	(SELECT COUNT(*) FROM lookups l WHERE l.run_id = r.run_id AND l.success = 0),
	(SELECT COUNT(*) FROM clips c WHERE c.run_id = r.run_id),
	(SELECT COUNT(*) FROM clips c WHERE c.run_id = r.run_id AND c.outcome = 'failed')`

func scanRun(row interface{ Scan(...interface{}) error }) (Run, error) {
	var r Run
	var finished sql.NullTime
	err := row.Scan(&r.RunID, &r.Stage, &r.StartedAt, &finished, &r.Status, &r.ErrorMessage,
		&r.Lookups, &r.FailedLookups, &r.Clips, &r.FailedClips)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}

// GetRun returns a single run.
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.run_id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
