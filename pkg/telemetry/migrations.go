package telemetry

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per rover power-on session
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			actuator TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Ticks table - one row per navigation loop iteration
		`CREATE TABLE IF NOT EXISTS ticks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			at DATETIME NOT NULL,
			state TEXT NOT NULL,
			linear_m_s REAL NOT NULL,
			angular_rad_s REAL NOT NULL,
			person_visible INTEGER NOT NULL DEFAULT 0,
			person_distance_m REAL,
			obstacle_ahead INTEGER NOT NULL DEFAULT 0,
			front_distance_m REAL
		)`,

		// Transitions table - one row per state machine transition
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			at DATETIME NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			cause TEXT NOT NULL
		)`,

		// Indexes for report queries
		`CREATE INDEX IF NOT EXISTS idx_ticks_run_id ON ticks(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_run_id ON transitions(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
