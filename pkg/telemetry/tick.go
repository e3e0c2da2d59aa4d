package telemetry

import (
	"database/sql"
	"time"
)

// TickSample is one navigation loop iteration.
type TickSample struct {
	RunID           string
	Seq             uint64
	At              time.Time
	State           string
	LinearMS        float64
	AngularRadS     float64
	PersonVisible   bool
	PersonDistanceM *float64 // nil when no person in view
	ObstacleAhead   bool
	FrontDistanceM  *float64 // nil when the front region was unreadable
}

// TickRepository stores and queries tick samples.
type TickRepository struct {
	db *sql.DB
}

// Ticks returns the tick repository for this store.
func (s *Store) Ticks() *TickRepository {
	return &TickRepository{db: s.db}
}

// AppendBatch inserts tick samples in one transaction. The recorder
// calls this with buffered samples to keep per-tick overhead off the
// navigation loop.
func (r *TickRepository) AppendBatch(samples []TickSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO ticks (run_id, seq, at, state, linear_m_s, angular_rad_s,
		                    person_visible, person_distance_m, obstacle_ahead, front_distance_m)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.Exec(
			s.RunID, s.Seq, s.At, s.State, s.LinearMS, s.AngularRadS,
			s.PersonVisible, nullFloat(s.PersonDistanceM), s.ObstacleAhead, nullFloat(s.FrontDistanceM),
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListByRun retrieves all ticks for a run in sequence order.
func (r *TickRepository) ListByRun(runID string) ([]TickSample, error) {
	rows, err := r.db.Query(
		`SELECT run_id, seq, at, state, linear_m_s, angular_rad_s,
		        person_visible, person_distance_m, obstacle_ahead, front_distance_m
		 FROM ticks WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []TickSample
	for rows.Next() {
		var s TickSample
		var personDist, frontDist sql.NullFloat64

		err := rows.Scan(
			&s.RunID, &s.Seq, &s.At, &s.State, &s.LinearMS, &s.AngularRadS,
			&s.PersonVisible, &personDist, &s.ObstacleAhead, &frontDist,
		)
		if err != nil {
			return nil, err
		}

		if personDist.Valid {
			s.PersonDistanceM = &personDist.Float64
		}
		if frontDist.Valid {
			s.FrontDistanceM = &frontDist.Float64
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// CountByRun returns how many ticks a run recorded.
func (r *TickRepository) CountByRun(runID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM ticks WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}

// StateCounts returns how many ticks the run spent in each state.
func (r *TickRepository) StateCounts(runID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT state, COUNT(*) FROM ticks WHERE run_id = ? GROUP BY state`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
