package core

// file_guard.go rejects uploads before any bytes are parsed.
//
// Checks run in order: MIME type, extension, size. The first failure wins.
// DuplicateTracker remembers recent submissions by a name/size/mtime token
// so a double-click or resubmit does not stage the same file twice. Its
// state lives in process memory only and is lost on restart.

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultMaxFileSize is 5 MiB.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// DefaultFingerprintTTL is how long a submitted file token is remembered.
const DefaultFingerprintTTL = time.Hour

var allowedMIMETypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
	"text/plain":      true,
}

// File guard error codes.
const (
	CodeFileType      = "FILE001"
	CodeFileExtension = "FILE002"
	CodeFileSize      = "FILE003"
)

// ErrDuplicateSubmission is returned when the same file was submitted recently.
var ErrDuplicateSubmission = errors.New("duplicate submission: this file was already uploaded recently")

// FileError is a pre-flight rejection of an uploaded file.
type FileError struct {
	Code    string
	Message string
}

func (e *FileError) Error() string { return e.Message }

// ValidateFile checks the reported MIME type, extension and size of meta.
// A non-positive maxSize falls back to DefaultMaxFileSize.
func ValidateFile(meta FileMeta, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	if !allowedMIMETypes[mediaType(meta.Type)] {
		return &FileError{
			Code:    CodeFileType,
			Message: fmt.Sprintf("Invalid file type: %s. Please upload a CSV file.", meta.Type),
		}
	}

	if !strings.EqualFold(filepath.Ext(meta.Name), ".csv") {
		return &FileError{
			Code:    CodeFileExtension,
			Message: fmt.Sprintf("Invalid file extension: %s. Only .csv files are allowed.", meta.Name),
		}
	}

	if meta.Size > maxSize {
		return &FileError{
			Code: CodeFileSize,
			Message: fmt.Sprintf("File size (%.2fMB) exceeds maximum allowed size (%sMB).",
				mebibytes(meta.Size), formatLimit(maxSize)),
		}
	}

	return nil
}

// mediaType drops parameters such as "; charset=utf-8" and lowercases.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func mebibytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

// formatLimit renders the limit without trailing zeros, so 5 MiB prints as "5".
func formatLimit(n int64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", mebibytes(n)), "0"), ".")
}

// FileToken is the duplicate-detection key for meta.
func FileToken(meta FileMeta) string {
	return fmt.Sprintf("%s-%d-%d", meta.Name, meta.Size, meta.LastModified)
}

// DuplicateTracker remembers file tokens for a fixed TTL.
// Expired tokens are ignored on read and removed by Sweep.
type DuplicateTracker struct {
	ttl   time.Duration
	clock Clock

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewDuplicateTracker creates a tracker. A non-positive ttl uses DefaultFingerprintTTL.
func NewDuplicateTracker(ttl time.Duration, opts ...Option) *DuplicateTracker {
	if ttl <= 0 {
		ttl = DefaultFingerprintTTL
	}
	o := buildOptions(opts)
	return &DuplicateTracker{
		ttl:    ttl,
		clock:  o.clock,
		tokens: make(map[string]time.Time),
	}
}

// Seen reports whether meta was submitted within the TTL. On a miss the
// token is recorded, so a second call with the same meta returns true.
func (d *DuplicateTracker) Seen(meta FileMeta) bool {
	token := FileToken(meta)
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.tokens[token]; ok && now.Before(exp) {
		return true
	}
	d.tokens[token] = now.Add(d.ttl)
	return false
}

// Forget drops the token for meta, letting the same file be submitted again.
func (d *DuplicateTracker) Forget(meta FileMeta) {
	d.mu.Lock()
	delete(d.tokens, FileToken(meta))
	d.mu.Unlock()
}

// Sweep removes expired tokens and returns how many were dropped.
func (d *DuplicateTracker) Sweep() int {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for token, exp := range d.tokens {
		if !now.Before(exp) {
			delete(d.tokens, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tokens, including expired ones not yet swept.
func (d *DuplicateTracker) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}
