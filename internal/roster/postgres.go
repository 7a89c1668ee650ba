package roster

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS roster_students (
	course_id   TEXT        NOT NULL,
	email       TEXT        NOT NULL,
	student_id  TEXT        NOT NULL,
	name        TEXT        NOT NULL,
	section     TEXT        NOT NULL DEFAULT '',
	enrolled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (course_id, email)
);
CREATE INDEX IF NOT EXISTS idx_roster_students_course ON roster_students (course_id);
`

const postgresUpsert = `
INSERT INTO roster_students (course_id, email, student_id, name, section, enrolled_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (course_id, email) DO UPDATE
SET student_id = EXCLUDED.student_id,
    name       = EXCLUDED.name,
    section    = EXCLUDED.section`

// PostgresStore keeps the roster in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool, pings it and creates the roster table if needed.
func NewPostgresStore(ctx context.Context, opts Options) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(opts.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the roster table and its index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create roster schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExistingEmails(ctx context.Context, courseID string, emails []string) (map[string]bool, error) {
	found := make(map[string]bool)
	emails = normalizeEmails(emails)
	if len(emails) == 0 {
		return found, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT email FROM roster_students WHERE course_id = $1 AND email = ANY($2)`,
		courseID, emails)
	if err != nil {
		return nil, fmt.Errorf("query existing emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		found[email] = true
	}
	return found, rows.Err()
}

// BulkUpsert sends every upsert in one pgx batch inside a transaction, so
// either all students are written or none are.
func (s *PostgresStore) BulkUpsert(ctx context.Context, courseID string, students []Student) (int, error) {
	if len(students) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, st := range students {
		batch.Queue(postgresUpsert, courseID, normalizeEmail(st.Email), st.StudentID, st.Name, st.Section, enrolledAt(st, now))
	}

	br := tx.SendBatch(ctx, batch)
	for i := range students {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("upsert student %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(students), nil
}

func (s *PostgresStore) List(ctx context.Context, courseID string) ([]Student, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT course_id, student_id, name, email, section, enrolled_at
		 FROM roster_students WHERE course_id = $1 ORDER BY name, email`, courseID)
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

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
