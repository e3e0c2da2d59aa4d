package telemetry

import (
	"database/sql"
	"errors"
	"time"
)

// Run represents one rover session stored in the database.
type Run struct {
	ID        string
	Actuator  string // "sim", "vesc", "http"
	StartedAt time.Time
	EndedAt   *time.Time // nil while the run is live
}

// Duration returns the run length, using now for a live run.
func (r *Run) Duration(now time.Time) time.Duration {
	if r.EndedAt != nil {
		return r.EndedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run into the database.
func (r *RunRepository) Create(run *Run) error {
	_, err := r.db.Exec(
		`INSERT INTO runs (id, actuator, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Actuator, run.StartedAt,
	)
	return err
}

// Finish marks a run as ended.
func (r *RunRepository) Finish(id string, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE runs SET ended_at = ? WHERE id = ?`,
		endedAt, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	var endedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, actuator, started_at, ended_at FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Actuator, &run.StartedAt, &endedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	return run, nil
}

// Latest retrieves the most recently started run.
func (r *RunRepository) Latest() (*Run, error) {
	run := &Run{}
	var endedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, actuator, started_at, ended_at FROM runs
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.Actuator, &run.StartedAt, &endedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	return run, nil
}

// List retrieves all runs, newest first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, actuator, started_at, ended_at FROM runs
		 ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var endedAt sql.NullTime

		if err := rows.Scan(&run.ID, &run.Actuator, &run.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
