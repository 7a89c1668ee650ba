// Package roster persists enrolled students per course.
//
// Three backends implement Store: an in-memory map for development and
// tests, PostgreSQL through pgxpool, and SQLite through database/sql. All
// key students by (course, lowercased email), so re-importing a student
// updates their row instead of adding a second one.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Student is an enrolled roster entry.
type Student struct {
	CourseID   string    `json:"courseId"`
	StudentID  string    `json:"studentId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Section    string    `json:"section"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// Store is the roster persistence collaborator used by the import service.
type Store interface {
	// ExistingEmails returns the subset of emails already enrolled in the
	// course. Keys are lowercased.
	ExistingEmails(ctx context.Context, courseID string, emails []string) (map[string]bool, error)

	// BulkUpsert writes students in a single batch and returns how many were written.
	BulkUpsert(ctx context.Context, courseID string, students []Student) (int, error)

	// List returns the course's students ordered by name.
	List(ctx context.Context, courseID string) ([]Student, error)

	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown roster backend")

// Options configures Open.
type Options struct {
	Backend string
	URL     string // Postgres connection string or SQLite file path

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the backend named in opts and ensures its schema exists.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, opts)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.URL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if n := normalizeEmail(e); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// enrolledAt keeps a caller-supplied enrollment time and falls back to now.
func enrolledAt(st Student, now time.Time) time.Time {
	if st.EnrolledAt.IsZero() {
		return now
	}
	return st.EnrolledAt.UTC()
}
