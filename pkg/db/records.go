package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dtnitsch/osm-extracts/models"
)

// InsertLookup records one remote lookup against runID.
func (db *DB) InsertLookup(ctx context.Context, runID int64, rec models.LookupRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO lookups (run_id, region_id, kind, url, status_code, success, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, rec.RegionID, rec.Kind, rec.URL, rec.StatusCode, rec.OK, NewNullString(rec.Error), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record lookup for %s: %w", rec.RegionID, err)
	}
	return nil
}

// InsertClip records one province clip against runID.
func (db *DB) InsertClip(ctx context.Context, runID int64, rec models.ClipRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clips (run_id, country, province_id, province_name, output_path, outcome, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, rec.Country, rec.ProvinceID, rec.ProvinceName, NewNullString(rec.OutputPath), rec.Outcome, NewNullString(rec.Error), rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record clip for %s: %w", rec.ProvinceID, err)
	}
	return nil
}

// GetRunLookups returns the lookups of a run in the order they were made.
func (db *DB) GetRunLookups(runID int64, failedOnly bool) ([]models.LookupRecord, error) {
	query := `
		SELECT region_id, kind, url, COALESCE(status_code, 0), success, COALESCE(error_message, ''), COALESCE(duration_ms, 0)
		FROM lookups WHERE run_id = ?`
	if failedOnly {
		query += ` AND success = 0`
	}
	query += ` ORDER BY lookup_id`

	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	var out []models.LookupRecord
	for rows.Next() {
		var rec models.LookupRecord
		var ms int64
		if err := rows.Scan(&rec.RegionID, &rec.Kind, &rec.URL, &rec.StatusCode, &rec.OK, &rec.Error, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRunClips returns the clips of a run in the order they were made.
func (db *DB) GetRunClips(runID int64) ([]models.ClipRecord, error) {
	rows, err := db.Query(`
		SELECT country, province_id, province_name, COALESCE(output_path, ''), outcome, COALESCE(error_message, ''), COALESCE(duration_ms, 0)
		FROM clips WHERE run_id = ? ORDER BY clip_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var out []models.ClipRecord
	for rows.Next() {
		var rec models.ClipRecord
		var ms int64
		if err := rows.Scan(&rec.Country, &rec.ProvinceID, &rec.ProvinceName, &rec.OutputPath, &rec.Outcome, &rec.Error, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Journal binds the DB to one run so components can record without knowing the run id.
type Journal struct {
	db    *DB
	runID int64
}

func (db *DB) Journal(runID int64) *Journal {
	return &Journal{db: db, runID: runID}
}

func (j *Journal) RunID() int64 {
	return j.runID
}

func (j *Journal) RecordLookup(ctx context.Context, rec models.LookupRecord) error {
	return j.db.InsertLookup(ctx, j.runID, rec)
}

func (j *Journal) RecordClip(ctx context.Context, rec models.ClipRecord) error {
	return j.db.InsertClip(ctx, j.runID, rec)
}

// NewNullString maps "" to SQL NULL.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
