package store

import (
	"database/sql"
	"time"
)

// timeLayout is fixed width so recorded_at compares correctly as text
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store is the local run-statistics sink. It holds operational records
// only; activity data lives in Notion.
type Store struct {
	db *sql.DB
}

// newStore creates a Store from a database connection.
func newStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
