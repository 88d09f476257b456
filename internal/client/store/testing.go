package store

import (
	"context"
	"database/sql"
	"testing"
)

// OpenTest returns a migrated in-memory database closed at test cleanup.
func OpenTest(t testing.TB) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
