package core

import "time"

// RawRow is one tokenized CSV line, one string per cell.
type RawRow []string

// RawRecord holds the four unvalidated cells of a roster row.
type RawRecord struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Section   string `json:"section"`
}

// StudentRecord is a roster entry whose fields have all passed validation.
// ID always equals Email.
type StudentRecord struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Section   string `json:"section"`
	ID        string `json:"id"`
}

// FieldResult is the outcome of validating a single field.
// Value carries the sanitized input whether or not validation passed.
type FieldResult struct {
	Valid bool   `json:"isValid"`
	Error string `json:"error,omitempty"`
	Value string `json:"value"`
}

// RecordResult is the outcome of validating a whole row.
type RecordResult struct {
	Valid  bool           `json:"isValid"`
	Record *StudentRecord `json:"record,omitempty"`
	Errors []string       `json:"errors,omitempty"`
}

// ParseResult is what ParseCSV produces.
type ParseResult struct {
	Rows           []RawRow
	DataRows       []RawRow // Rows without the header, when one was detected
	HasHeader      bool
	IsSingleColumn bool
	Errors         []string // Structural problems; parsing continues past them
}

// ProcessResult is what ProcessRows produces.
type ProcessResult struct {
	Valid  []StudentRecord
	Errors []string
}

// ImportMode selects how parsed rows become records.
type ImportMode string

const (
	// ModeFullRecord maps four-column rows through the field validators.
	ModeFullRecord ImportMode = "full_record"

	// ModeNameOnly treats each row as a bare name and generates the
	// remaining fields. Generated records skip validation.
	ModeNameOnly ImportMode = "name_only"
)

// FileMeta describes an uploaded file as reported by the client.
type FileMeta struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"` // Milliseconds since the Unix epoch
}

// ImportRequest is a single roster upload.
type ImportRequest struct {
	UserID   string
	CourseID string
	File     FileMeta
	Data     []byte
}

// ImportResult reports what an upload staged and what it rejected.
type ImportResult struct {
	ImportID         string          `json:"importId"`
	CourseID         string          `json:"courseId"`
	FileName         string          `json:"fileName"`
	Mode             ImportMode      `json:"mode"`
	Records          []StudentRecord `json:"records"`
	Errors           []string        `json:"errors"`
	StructuralErrors []string        `json:"structuralErrors,omitempty"`
	Staged           int             `json:"staged"`
	Summary          string          `json:"summary"`
	Duration         time.Duration   `json:"-"`
}

// StagedRecord is a validated record waiting for a commit.
type StagedRecord struct {
	StudentRecord
	ImportID string    `json:"importId,omitempty"`
	StagedAt time.Time `json:"stagedAt"`
}

// CommitResult reports a bulk write of staged records.
type CommitResult struct {
	CourseID  string `json:"courseId"`
	Committed int    `json:"committed"`

	// EventID is set once the roster.imported event is published.
	EventID string `json:"eventId,omitempty"`

	// PublishErr is why the event was not published. The commit itself
	// still succeeded.
	PublishErr error `json:"-"`
}

// Metrics receives import outcome counts. Implemented by metrics.Collector.
type Metrics interface {
	FileRejected(code string)
	RecordsProcessed(mode ImportMode, valid, invalid int)
	RateLimited()
	Committed(n int)
}

type nopMetrics struct{}

func (nopMetrics) FileRejected(string)                   {}
func (nopMetrics) RecordsProcessed(ImportMode, int, int) {}
func (nopMetrics) RateLimited()                          {}
func (nopMetrics) Committed(int)                         {}

// Clock supplies the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures the time-based components in this package.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the clock used for expiry and window calculations.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Sweeper is anything that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}
