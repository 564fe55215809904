package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per run of the blink tracker
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			faceless_frames INTEGER NOT NULL DEFAULT 0,
			clicks INTEGER NOT NULL DEFAULT 0
		)`,

		// Clicks table - every click emitted by the blink policy
		`CREATE TABLE IF NOT EXISTS clicks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			side TEXT NOT NULL CHECK(side IN ('left', 'right')),
			left_distance REAL NOT NULL,
			right_distance REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_clicks_session_id ON clicks(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_created_at ON clicks(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
