package roster

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS roster_students (
	course_id   TEXT     NOT NULL,
	email       TEXT     NOT NULL,
	student_id  TEXT     NOT NULL,
	name        TEXT     NOT NULL,
	section     TEXT     NOT NULL DEFAULT '',
	enrolled_at DATETIME NOT NULL,
	PRIMARY KEY (course_id, email)
);
`

// SQLiteStore keeps the roster in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path in WAL mode.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteLookupChunk bounds the IN list per query. SQLite rejects statements
// with more than 32766 bound variables.
const sqliteLookupChunk = 500

func (s *SQLiteStore) ExistingEmails(ctx context.Context, courseID string, emails []string) (map[string]bool, error) {
	found := make(map[string]bool)
	emails = normalizeEmails(emails)

	for start := 0; start < len(emails); start += sqliteLookupChunk {
		end := min(start+sqliteLookupChunk, len(emails))
		if err := s.existingChunk(ctx, courseID, emails[start:end], found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (s *SQLiteStore) existingChunk(ctx context.Context, courseID string, emails []string, found map[string]bool) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(emails)), ",")
	args := make([]any, 0, len(emails)+1)
	args = append(args, courseID)
	for _, e := range emails {
		args = append(args, e)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM roster_students WHERE course_id = ? AND email IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("query existing emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return err
		}
		found[email] = true
	}
	return rows.Err()
}

func (s *SQLiteStore) BulkUpsert(ctx context.Context, courseID string, students []Student) (int, error) {
	if len(students) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO roster_students (course_id, email, student_id, name, section, enrolled_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (course_id, email) DO UPDATE
		SET student_id = excluded.student_id, name = excluded.name, section = excluded.section`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, st := range students {
		if _, err := stmt.ExecContext(ctx, courseID, normalizeEmail(st.Email), st.StudentID, st.Name, st.Section, enrolledAt(st, now)); err != nil {
			return 0, fmt.Errorf("upsert student %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(students), nil
}

func (s *SQLiteStore) List(ctx context.Context, courseID string) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id, student_id, name, email, section, enrolled_at
		 FROM roster_students WHERE course_id = ? ORDER BY name, email`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	students := make([]Student, 0)
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.CourseID, &st.StudentID, &st.Name, &st.Email, &st.Section, &st.EnrolledAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
