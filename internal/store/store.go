// Package store persists processing results to SQLite. One row in runs per
// processed recording, with calibration, epoch, sleep-window and nonwear
// detail tables keyed by run id.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/nonwear"
	"github.com/somnolab/actigraphy/internal/sleep"
)

// Store wraps the results database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the results database at path. The schema is
// managed separately through MigrateUp.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return &Store{db}, nil
}

// NewRunID mints a run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is one processed recording.
type Run struct {
	ID           string
	SourcePath   string
	Serial       string
	SampleRate   float64
	Backend      string
	EpochSeconds float64
	Samples      int
	CreatedAt    time.Time
}

// InsertRun records a processed recording.
func (s *Store) InsertRun(r Run) error {
	_, err := s.Exec(`
		INSERT INTO runs (id, source_path, serial, sample_rate, backend, epoch_seconds, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourcePath, r.Serial, r.SampleRate, r.Backend, r.EpochSeconds, r.Samples)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun loads one run row.
func (s *Store) GetRun(id string) (*Run, error) {
	r := Run{ID: id}
	var created string
	err := s.QueryRow(`
		SELECT source_path, serial, sample_rate, backend, epoch_seconds, samples, created_at
		FROM runs WHERE id = ?`, id).
		Scan(&r.SourcePath, &r.Serial, &r.SampleRate, &r.Backend, &r.EpochSeconds, &r.Samples, &created)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		r.CreatedAt = t
	}
	return &r, nil
}

// SaveCalibration records the autocalibration outcome for a run.
func (s *Store) SaveCalibration(runID string, res accel.CalibrationResult) error {
	_, err := s.Exec(`
		INSERT INTO calibration (run_id, success, offset_x, offset_y, offset_z,
			scale_x, scale_y, scale_z, error_before, error_after, points, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Success,
		res.Offset[0], res.Offset[1], res.Offset[2],
		res.Scale[0], res.Scale[1], res.Scale[2],
		res.ErrorBefore, res.ErrorAfter, res.Points, res.Message)
	if err != nil {
		return fmt.Errorf("save calibration for %s: %w", runID, err)
	}
	return nil
}

// SaveEpochs bulk-inserts the epoch summary inside one transaction.
func (s *Store) SaveEpochs(runID string, e *accel.EpochSummary) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin epochs tx: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO epochs (run_id, idx, ts, x, y, z, magnitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare epochs insert: %w", err)
	}
	defer stmt.Close()
	for i := 0; i < e.Len(); i++ {
		if _, err := stmt.Exec(runID, i, e.Timestamps[i], e.X[i], e.Y[i], e.Z[i], e.Magnitude[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert epoch %d for %s: %w", i, runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit epochs for %s: %w", runID, err)
	}
	return nil
}

// CountEpochs returns the stored epoch count for a run.
func (s *Store) CountEpochs(runID string) (int, error) {
	var n int
	if err := s.QueryRow(`SELECT COUNT(*) FROM epochs WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count epochs for %s: %w", runID, err)
	}
	return n, nil
}

// SaveSleepWindow records the detected main sleep window for a run.
func (s *Store) SaveSleepWindow(runID string, w *sleep.Window) error {
	_, err := s.Exec(`
		INSERT INTO sleep_windows (run_id, onset_idx, offset_idx, onset_ts, offset_ts,
			duration_minutes, total_sleep_minutes, waso_minutes, efficiency, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, w.OnsetIndex, w.OffsetIndex, w.OnsetTime, w.OffsetTime,
		w.DurationMinutes, w.TotalSleepMinutes, w.WakeAfterOnsetMinutes, w.Efficiency, w.Method)
	if err != nil {
		return fmt.Errorf("save sleep window for %s: %w", runID, err)
	}
	return nil
}

// SleepWindows loads the stored windows for a run.
func (s *Store) SleepWindows(runID string) ([]sleep.Window, error) {
	rows, err := s.Query(`
		SELECT onset_idx, offset_idx, onset_ts, offset_ts,
			duration_minutes, total_sleep_minutes, waso_minutes, efficiency, method
		FROM sleep_windows WHERE run_id = ? ORDER BY onset_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("load sleep windows for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []sleep.Window
	for rows.Next() {
		var w sleep.Window
		if err := rows.Scan(&w.OnsetIndex, &w.OffsetIndex, &w.OnsetTime, &w.OffsetTime,
			&w.DurationMinutes, &w.TotalSleepMinutes, &w.WakeAfterOnsetMinutes,
			&w.Efficiency, &w.Method); err != nil {
			return nil, fmt.Errorf("scan sleep window: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SaveNonwearRanges records the flagged ranges of one detector pass.
func (s *Store) SaveNonwearRanges(runID string, res *nonwear.Result) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin nonwear tx: %w", err)
	}
	for _, r := range res.Ranges {
		if _, err := tx.Exec(`
			INSERT INTO nonwear_ranges (run_id, algorithm, unit_seconds, start_idx, end_idx)
			VALUES (?, ?, ?, ?, ?)`,
			runID, res.Algorithm, res.UnitSeconds, r[0], r[1]); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert nonwear range for %s: %w", runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit nonwear ranges for %s: %w", runID, err)
	}
	return nil
}

// NonwearRanges loads the stored ranges for a run and detector.
func (s *Store) NonwearRanges(runID, algorithm string) ([][2]int, error) {
	rows, err := s.Query(`
		SELECT start_idx, end_idx FROM nonwear_ranges
		WHERE run_id = ? AND algorithm = ? ORDER BY start_idx`, runID, algorithm)
	if err != nil {
		return nil, fmt.Errorf("load nonwear ranges for %s: %w", runID, err)
	}
	defer rows.Close()

	var out [][2]int
	for rows.Next() {
		var r [2]int
		if err := rows.Scan(&r[0], &r[1]); err != nil {
			return nil, fmt.Errorf("scan nonwear range: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
