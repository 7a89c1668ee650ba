package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/rollcall/internal/events"
	"github.com/JonMunkholm/rollcall/internal/roster"
)

// Publisher receives roster events after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// ServiceConfig holds the import limits. Zero values fall back to the
// package defaults.
type ServiceConfig struct {
	MaxFileSize    int64
	MaxAttempts    int
	RateWindow     time.Duration
	FingerprintTTL time.Duration
	MaxConcurrent  int
	MaxWait        time.Duration
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithPublisher sets where commit events go. Without one, commits publish nothing.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the import outcome recorder.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithServiceClock overrides the clock for the service and its guards.
func WithServiceClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// Service runs roster imports and the staging/commit workflow.
type Service struct {
	store     roster.Store
	publisher Publisher
	metrics   Metrics
	clock     Clock

	maxFileSize int64
	limiter     *RateLimiter
	duplicates  *DuplicateTracker
	staging     *Staging
	imports     *ImportLimiter
}

// NewService wires the pipeline guards around store.
func NewService(store roster.Store, cfg ServiceConfig, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		metrics:     nopMetrics{},
		clock:       systemClock{},
		maxFileSize: cfg.MaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}

	clock := WithClock(s.clock)
	s.limiter = NewRateLimiter(cfg.MaxAttempts, cfg.RateWindow, clock)
	s.duplicates = NewDuplicateTracker(cfg.FingerprintTTL, clock)
	s.staging = NewStaging(clock)
	s.imports = NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait)
	return s
}

// Limiter returns the per-user import rate limiter so the host can sweep it.
func (s *Service) Limiter() *RateLimiter { return s.limiter }

// Duplicates returns the duplicate submission tracker so the host can sweep it.
func (s *Service) Duplicates() *DuplicateTracker { return s.duplicates }

// Staging returns the staging area.
func (s *Service) Staging() *Staging { return s.staging }

// ImportStatus reports import slot occupancy.
func (s *Service) ImportStatus() ImportLimiterStatus { return s.imports.Status() }

// Drain waits for in-flight imports to finish.
func (s *Service) Drain(ctx context.Context) error { return s.imports.WaitForDrain(ctx) }

// Import validates an uploaded roster file and stages its valid records.
//
// Pre-flight failures (rate limit, file guard, duplicate submission,
// encoding, empty or unreadable file) return an error and stage nothing.
// Row-level problems never fail the call; they are listed in the result.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := s.clock.Now()

	if req.CourseID == "" {
		return nil, ErrMissingCourse
	}

	if d := s.limiter.Check(req.UserID); !d.Allowed {
		s.metrics.RateLimited()
		return nil, &RateLimitError{RetryAfter: d.RetryAfter}
	}

	if err := s.imports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.imports.Release()

	if err := ValidateFile(req.File, s.maxFileSize); err != nil {
		var fileErr *FileError
		if errors.As(err, &fileErr) {
			s.metrics.FileRejected(fileErr.Code)
		}
		return nil, err
	}

	if s.duplicates.Seen(req.File) {
		s.metrics.FileRejected(msgDuplicate.Code)
		return nil, ErrDuplicateSubmission
	}

	text, err := NormalizeEncoding(req.Data)
	if err != nil {
		s.metrics.FileRejected(msgEncoding.Code)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		s.metrics.FileRejected(msgEmptyFile.Code)
		return nil, ErrEmptyFile
	}

	parsed := ParseCSV(text)
	if len(parsed.Rows) == 0 {
		s.metrics.FileRejected(msgInvalidCSV.Code)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCSV, strings.Join(parsed.Errors, "; "))
	}

	mode := ModeFullRecord
	var (
		candidates []StudentRecord
		rowErrs    []string
	)
	if parsed.IsSingleColumn {
		mode = ModeNameOnly
		candidates = SynthesizeNameOnly(parsed.DataRows)
	} else {
		processed := ProcessRows(parsed.DataRows, parsed.HasHeader)
		candidates, rowErrs = processed.Valid, processed.Errors
	}

	accepted, conflicts, err := s.crossCheck(ctx, req.UserID, req.CourseID, candidates)
	if err != nil {
		// A store outage is not the file's fault; let the user resubmit it.
		s.duplicates.Forget(req.File)
		return nil, err
	}
	rowErrs = append(rowErrs, conflicts...)

	// A concurrent import may have staged some of these since crossCheck.
	importID := uuid.NewString()
	added, skipped := s.staging.Add(req.UserID, req.CourseID, importID, accepted)
	for _, rec := range skipped {
		rowErrs = append(rowErrs, alreadyStaged(rec.Email))
	}
	staged := len(added)

	allErrs := make([]string, 0, len(parsed.Errors)+len(rowErrs))
	allErrs = append(allErrs, parsed.Errors...)
	allErrs = append(allErrs, rowErrs...)

	result := &ImportResult{
		ImportID:         importID,
		CourseID:         req.CourseID,
		FileName:         req.File.Name,
		Mode:             mode,
		Records:          added,
		Errors:           rowErrs,
		StructuralErrors: parsed.Errors,
		Staged:           staged,
		Summary:          Summary(staged, allErrs),
		Duration:         s.clock.Now().Sub(start),
	}

	s.metrics.RecordsProcessed(mode, staged, len(rowErrs))
	return result, nil
}

// crossCheck drops records already enrolled in the course or already
// staged by this user, returning one error line per dropped record.
func (s *Service) crossCheck(ctx context.Context, userID, courseID string, records []StudentRecord) ([]StudentRecord, []string, error) {
	if len(records) == 0 {
		return nil, nil, nil
	}

	emails := make([]string, len(records))
	for i, rec := range records {
		emails[i] = rec.Email
	}
	enrolled, err := s.store.ExistingEmails(ctx, courseID, emails)
	if err != nil {
		return nil, nil, fmt.Errorf("check enrolled students: %w", err)
	}

	accepted := make([]StudentRecord, 0, len(records))
	var conflicts []string
	for _, rec := range records {
		if msg := s.conflict(userID, courseID, rec.Email, enrolled); msg != "" {
			conflicts = append(conflicts, msg)
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted, conflicts, nil
}

func (s *Service) conflict(userID, courseID, email string, enrolled map[string]bool) string {
	if enrolled[strings.ToLower(email)] {
		return fmt.Sprintf("Student with email %s is already enrolled in this course", email)
	}
	if s.staging.Contains(userID, courseID, email) {
		return alreadyStaged(email)
	}
	return ""
}

func alreadyStaged(email string) string {
	return fmt.Sprintf("Student with email %s is already staged for import", email)
}

// AddStudent validates a single manually entered student and stages it.
// Invalid fields return *RecordError; an enrolled or staged email returns
// *ConflictError.
func (s *Service) AddStudent(ctx context.Context, userID, courseID string, raw RawRecord) (StudentRecord, error) {
	if courseID == "" {
		return StudentRecord{}, ErrMissingCourse
	}

	res := ValidateStudentRecord(raw)
	if !res.Valid {
		return StudentRecord{}, &RecordError{Errors: res.Errors}
	}
	rec := *res.Record

	enrolled, err := s.store.ExistingEmails(ctx, courseID, []string{rec.Email})
	if err != nil {
		return StudentRecord{}, fmt.Errorf("check enrolled students: %w", err)
	}
	if msg := s.conflict(userID, courseID, rec.Email, enrolled); msg != "" {
		return StudentRecord{}, &ConflictError{Message: msg}
	}

	if _, skipped := s.staging.Add(userID, courseID, "", []StudentRecord{rec}); len(skipped) > 0 {
		return StudentRecord{}, &ConflictError{Message: alreadyStaged(rec.Email)}
	}
	return rec, nil
}

// ListStaged returns the user's staged records for the course.
func (s *Service) ListStaged(userID, courseID string) []StagedRecord {
	return s.staging.List(userID, courseID)
}

// RemoveStaged unstages one email.
func (s *Service) RemoveStaged(userID, courseID, email string) error {
	if !s.staging.Remove(userID, courseID, email) {
		return ErrNotStaged
	}
	return nil
}

// ClearStaged drops all staged records and returns how many there were.
func (s *Service) ClearStaged(userID, courseID string) int {
	return s.staging.Clear(userID, courseID)
}

// Roster lists the students enrolled in the course.
func (s *Service) Roster(ctx context.Context, courseID string) ([]roster.Student, error) {
	if courseID == "" {
		return nil, ErrMissingCourse
	}
	students, err := s.store.List(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// Commit writes the staged records to the roster store in one batch.
// On failure the records are put back so the user can retry.
func (s *Service) Commit(ctx context.Context, userID, courseID string) (*CommitResult, error) {
	if courseID == "" {
		return nil, ErrMissingCourse
	}

	staged := s.staging.Take(userID, courseID)
	if len(staged) == 0 {
		return nil, ErrNothingStaged
	}

	now := s.clock.Now().UTC()
	students := make([]roster.Student, len(staged))
	for i, rec := range staged {
		students[i] = roster.Student{
			CourseID:   courseID,
			StudentID:  rec.StudentID,
			Name:       rec.Name,
			Email:      rec.Email,
			Section:    rec.Section,
			EnrolledAt: now,
		}
	}

	n, err := s.store.BulkUpsert(ctx, courseID, students)
	if err != nil {
		s.staging.Restore(userID, courseID, staged)
		return nil, fmt.Errorf("commit roster: %w", err)
	}
	s.metrics.Committed(n)

	result := &CommitResult{CourseID: courseID, Committed: n}
	if s.publisher != nil {
		ev := events.NewEvent(events.TypeRosterImported, courseID, userID, n)
		if err := s.publisher.Publish(ctx, ev); err != nil {
			result.PublishErr = fmt.Errorf("publish %s: %w", ev.ID, err)
		} else {
			result.EventID = ev.ID
		}
	}
	return result, nil
}
