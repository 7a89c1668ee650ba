package core

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		meta     FileMeta
		wantCode string
		wantMsg  string
	}{
		{
			name: "valid csv",
			meta: FileMeta{Name: "roster.csv", Type: "text/csv", Size: 1024},
		},
		{
			name: "uppercase extension and charset param",
			meta: FileMeta{Name: "ROSTER.CSV", Type: "text/plain; charset=utf-8", Size: 10},
		},
		{
			name:     "wrong mime",
			meta:     FileMeta{Name: "roster.csv", Type: "application/pdf", Size: 10},
			wantCode: CodeFileType,
			wantMsg:  "Invalid file type: application/pdf. Please upload a CSV file.",
		},
		{
			name:     "mime checked before extension",
			meta:     FileMeta{Name: "roster.xlsx", Type: "application/vnd.ms-excel", Size: 10},
			wantCode: CodeFileType,
			wantMsg:  "Invalid file type: application/vnd.ms-excel. Please upload a CSV file.",
		},
		{
			name:     "wrong extension",
			meta:     FileMeta{Name: "roster.txt", Type: "text/plain", Size: 10},
			wantCode: CodeFileExtension,
			wantMsg:  "Invalid file extension: roster.txt. Only .csv files are allowed.",
		},
		{
			name:     "six mebibytes",
			meta:     FileMeta{Name: "roster.csv", Type: "text/csv", Size: 6 * 1024 * 1024},
			wantCode: CodeFileSize,
			wantMsg:  "File size (6.00MB) exceeds maximum allowed size (5MB).",
		},
		{
			name: "exactly the limit",
			meta: FileMeta{Name: "roster.csv", Type: "text/csv", Size: DefaultMaxFileSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.meta, 0)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var fe *FileError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FileError, got %v", err)
			}
			if fe.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", fe.Code, tt.wantCode)
			}
			if fe.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", fe.Message, tt.wantMsg)
			}
		})
	}
}

func TestFileToken(t *testing.T) {
	got := FileToken(FileMeta{Name: "a.csv", Size: 12, LastModified: 1700000000000})
	if want := "a.csv-12-1700000000000"; got != want {
		t.Errorf("FileToken = %q, want %q", got, want)
	}
}

func TestDuplicateTracker_SeenAndExpiry(t *testing.T) {
	clock := newFakeClock()
	tracker := NewDuplicateTracker(time.Hour, WithClock(clock))
	meta := FileMeta{Name: "a.csv", Size: 12, LastModified: 1}

	if tracker.Seen(meta) {
		t.Fatal("first submission reported as duplicate")
	}
	if !tracker.Seen(meta) {
		t.Fatal("second submission not reported as duplicate")
	}

	other := meta
	other.LastModified = 2
	if tracker.Seen(other) {
		t.Error("different mtime should produce a different token")
	}

	clock.Advance(time.Hour)
	if tracker.Seen(meta) {
		t.Error("token should have expired after the TTL")
	}
}

func TestDuplicateTracker_Sweep(t *testing.T) {
	clock := newFakeClock()
	tracker := NewDuplicateTracker(time.Minute, WithClock(clock))

	tracker.Seen(FileMeta{Name: "a.csv"})
	clock.Advance(30 * time.Second)
	tracker.Seen(FileMeta{Name: "b.csv"})
	clock.Advance(45 * time.Second)

	if removed := tracker.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if got := tracker.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestDuplicateTracker_Forget(t *testing.T) {
	tracker := NewDuplicateTracker(0)
	meta := FileMeta{Name: "a.csv"}

	tracker.Seen(meta)
	tracker.Forget(meta)
	if tracker.Seen(meta) {
		t.Error("forgotten token should not be reported as duplicate")
	}
}
