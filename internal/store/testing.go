package store

import (
	"testing"
)

// NewTestStore creates a Store for testing with an in-memory database.
// This is only intended for use in tests.
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
