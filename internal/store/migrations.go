package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// One row per sync run; payload is the JSON-encoded RunStats
		`CREATE TABLE IF NOT EXISTS run_stats (
			id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			status TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_run_stats_recorded_at ON run_stats(recorded_at)`,

		// Sync state (key-value store for tracking sync progress)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
