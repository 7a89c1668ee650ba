// Package core provides the business logic for roster CSV imports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Pre-flight rejections raised before any row is parsed:
//
//	FILE001 - Wrong type: the file's MIME type is not a CSV type
//	          Action: Export the roster as CSV and upload it again
//	          Source: *FileError
//
//	FILE002 - Wrong extension: the file name does not end in .csv
//	          Action: Export the roster as CSV and upload it again
//	          Source: *FileError
//
//	FILE003 - Too large: the file exceeds the configured size limit (5MB)
//	          Action: Split the roster into smaller files
//	          Source: *FileError
//
//	FILE004 - Encoding error: the file could not be decoded
//	          Action: Save the file as UTF-8 and try again
//	          Source: *EncodingError, pattern "encoding error"
//
//	FILE005 - Empty file: the uploaded file has no content
//	          Action: Upload a CSV file with at least one student
//	          Source: ErrEmptyFile, pattern "empty file"
//
//	FILE006 - Duplicate submission: the same file was uploaded recently
//	          Action: Check the staged list before uploading again
//	          Source: ErrDuplicateSubmission
//
//	FILE007 - No file: the request did not include a file
//	          Action: Select a CSV file to upload
//	          Source: ErrNoFile, pattern "no file provided"
//
//	FILE008 - Invalid CSV: no rows could be read from the file
//	          Action: Download the template and compare your file against it
//	          Source: ErrInvalidCSV, pattern "invalid csv"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid student: one or more fields failed validation
//	         Action: Correct the highlighted fields and try again
//	         Source: *RecordError
//
//	VAL002 - Missing course: no course was given for the import
//	         Action: Open the course before importing its roster
//	         Source: ErrMissingCourse
//
//	VAL003 - Already enrolled or staged: the student is already on the roster
//	         Action: Remove the student from the form or the staged list
//	         Source: *ConflictError
//
// # Staging Errors (STG001-STG099)
//
//	STG001 - Nothing staged: commit was requested with an empty staged list
//	         Action: Import or add students before committing
//	         Source: ErrNothingStaged
//
//	STG002 - Not staged: the student to remove is not in the staged list
//	         Action: Refresh the staged list
//	         Source: ErrNotStaged
//
// # Roster Store Errors (ROS001-ROS099)
//
//	ROS001 - Store unavailable: the roster store could not be reached
//	         Action: Please try again in a few moments
//	         Patterns: "connection refused", "connection reset", "database is locked"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL003 - Server busy: every import slot stayed occupied for the wait time
//	         Action: Please try again in a few seconds
//	         Source: ErrTooManyImports
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try uploading a smaller file or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many import attempts
//	          Action: Wait before trying again
//	          Source: *RateLimitError, pattern "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific error or pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Matching
//
// Typed and sentinel errors are matched first with errors.As and errors.Is,
// so wrapping with fmt.Errorf("...: %w", err) keeps the code. Anything else
// falls through to case-insensitive substring patterns; the first match wins.
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated source to understand what triggered it
//  3. Review the suggested action to guide the user
//  4. If ERR000, check application logs for the original technical error
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	// ErrEmptyFile is returned when the decoded file holds only whitespace.
	ErrEmptyFile = errors.New("empty file: no content to import")

	// ErrNoFile is returned by transports when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidCSV is returned when parsing produced no rows at all.
	ErrInvalidCSV = errors.New("invalid csv: no rows could be read")

	// ErrMissingCourse is returned when an operation has no course id.
	ErrMissingCourse = errors.New("missing course id")

	// ErrNothingStaged is returned by Commit when the staged list is empty.
	ErrNothingStaged = errors.New("nothing staged to commit")

	// ErrNotStaged is returned when removing an email that is not staged.
	ErrNotStaged = errors.New("student is not staged")
)

// RecordError carries the field errors of a rejected manual entry.
type RecordError struct {
	Errors []string
}

func (e *RecordError) Error() string {
	return "invalid student record: " + strings.Join(e.Errors, ", ")
}

// ConflictError reports a record that is already enrolled or staged.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgEncoding = UserMessage{
		Message: "The file could not be decoded",
		Action:  "Save the file as UTF-8 and try again",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a CSV file with at least one student",
		Code:    "FILE005",
	}
	msgDuplicate = UserMessage{
		Message: "This file was already uploaded recently",
		Action:  "Check the staged list before uploading again",
		Code:    "FILE006",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Select a CSV file to upload",
		Code:    "FILE007",
	}
	msgInvalidCSV = UserMessage{
		Message: "No rows could be read from the file",
		Action:  "Download the template and compare your file against it",
		Code:    "FILE008",
	}
	msgMissingCourse = UserMessage{
		Message: "No course was selected",
		Action:  "Open the course before importing its roster",
		Code:    "VAL002",
	}
	msgNothingStaged = UserMessage{
		Message: "There are no staged students to commit",
		Action:  "Import or add students before committing",
		Code:    "STG001",
	}
	msgNotStaged = UserMessage{
		Message: "That student is not in the staged list",
		Action:  "Refresh the staged list",
		Code:    "STG002",
	}
	msgRateLimited = UserMessage{
		Message: "Too many import attempts",
		Action:  "Wait before trying again",
		Code:    "RATE001",
	}
	msgTooManyImports = UserMessage{
		Message: "The server is busy with other imports",
		Action:  "Please try again in a few seconds",
		Code:    "UPL003",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgStoreUnavailable = UserMessage{
		Message: "The roster could not be reached",
		Action:  "Please try again in a few moments",
		Code:    "ROS001",
	}
)

// sentinelMessages maps sentinel errors to user messages. Checked with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrEmptyFile, msgEmptyFile},
	{ErrDuplicateSubmission, msgDuplicate},
	{ErrNoFile, msgNoFile},
	{ErrInvalidCSV, msgInvalidCSV},
	{ErrMissingCourse, msgMissingCourse},
	{ErrNothingStaged, msgNothingStaged},
	{ErrNotStaged, msgNotStaged},
	{ErrTooManyImports, msgTooManyImports},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{pattern: "encoding error", msg: msgEncoding},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "invalid csv", msg: msgInvalidCSV},

	// =========================================================================
	// Roster Store Errors
	// =========================================================================
	{pattern: "connection refused", msg: msgStoreUnavailable},
	{pattern: "connection reset", msg: msgStoreUnavailable},
	{pattern: "database is locked", msg: msgStoreUnavailable},

	// =========================================================================
	// Upload Errors
	// =========================================================================
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "context deadline exceeded", msg: msgTimeout},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors keep their own text; file guard rejections, for example,
// surface the exact reason the file was refused.
//
// Example:
//
//	err := ValidateFile(meta, 0)
//	msg := MapError(err)
//	// msg.Code == "FILE003"
//	// msg.Message == "File size (6.00MB) exceeds maximum allowed size (5MB)."
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		fileErr     *FileError
		encErr      *EncodingError
		rateErr     *RateLimitError
		recordErr   *RecordError
		conflictErr *ConflictError
	)
	switch {
	case errors.As(err, &fileErr):
		return UserMessage{Message: fileErr.Message, Action: fileAction(fileErr.Code), Code: fileErr.Code}
	case errors.As(err, &encErr):
		return msgEncoding
	case errors.As(err, &rateErr):
		return UserMessage{
			Message: fmt.Sprintf("Too many import attempts. Please wait %d seconds before trying again.", rateErr.RetryAfter),
			Action:  msgRateLimited.Action,
			Code:    msgRateLimited.Code,
		}
	case errors.As(err, &recordErr):
		return UserMessage{
			Message: strings.Join(recordErr.Errors, "; "),
			Action:  "Correct the highlighted fields and try again",
			Code:    "VAL001",
		}
	case errors.As(err, &conflictErr):
		return UserMessage{
			Message: conflictErr.Message,
			Action:  "Remove the student from the form or the staged list",
			Code:    "VAL003",
		}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func fileAction(code string) string {
	if code == CodeFileSize {
		return "Split the roster into smaller files"
	}
	return "Export the roster as CSV and upload it again"
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	if msg.Action == "" {
		return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
