package telemetry

import (
	"database/sql"
	"time"
)

// TransitionRecord is one state machine transition.
type TransitionRecord struct {
	ID        int64
	RunID     string
	At        time.Time
	FromState string
	ToState   string
	Cause     string
}

// TransitionRepository stores and queries transitions.
type TransitionRepository struct {
	db *sql.DB
}

// Transitions returns the transition repository for this store.
func (s *Store) Transitions() *TransitionRepository {
	return &TransitionRepository{db: s.db}
}

// Create inserts a transition record.
func (r *TransitionRepository) Create(tr *TransitionRecord) error {
	result, err := r.db.Exec(
		`INSERT INTO transitions (run_id, at, from_state, to_state, cause)
		 VALUES (?, ?, ?, ?, ?)`,
		tr.RunID, tr.At, tr.FromState, tr.ToState, tr.Cause,
	)
	if err != nil {
		return err
	}

	tr.ID, err = result.LastInsertId()
	return err
}

// ListByRun retrieves all transitions for a run in order.
func (r *TransitionRepository) ListByRun(runID string) ([]TransitionRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, at, from_state, to_state, cause
		 FROM transitions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var tr TransitionRecord
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.At, &tr.FromState, &tr.ToState, &tr.Cause); err != nil {
			return nil, err
		}
		records = append(records, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountByCause returns how many transitions each cause produced.
func (r *TransitionRepository) CountByCause(runID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT cause, COUNT(*) FROM transitions WHERE run_id = ? GROUP BY cause`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cause string
		var count int
		if err := rows.Scan(&cause, &count); err != nil {
			return nil, err
		}
		counts[cause] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
