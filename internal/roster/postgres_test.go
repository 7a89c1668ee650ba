package roster

import (
	"context"
	"os"
	"testing"
)

// TestPostgresStore runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, Options{Backend: BackendPostgres, URL: dsn, MaxConns: 2})
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()

	if _, err := s.pool.Exec(ctx, `DELETE FROM roster_students WHERE course_id IN ('c1', 'c2', 'c3', 'big')`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, s)
}
