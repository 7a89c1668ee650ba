package core

import (
	"fmt"
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		if got := Summary(3, nil); got != "3 valid records staged; 0 errors" {
			t.Errorf("Summary = %q", got)
		}
	})

	t.Run("lists all errors up to the limit", func(t *testing.T) {
		got := Summary(1, []string{"Row 1: a", "Row 2: b"})
		want := "1 valid records staged; 2 errors\nRow 1: a\nRow 2: b"
		if got != want {
			t.Errorf("Summary = %q, want %q", got, want)
		}
	})

	t.Run("collapses errors past the limit", func(t *testing.T) {
		var errs []string
		for i := 1; i <= 13; i++ {
			errs = append(errs, fmt.Sprintf("Row %d: bad", i))
		}
		got := Summary(0, errs)
		lines := strings.Split(got, "\n")

		if len(lines) != 1+SummaryErrorLimit+1 {
			t.Fatalf("got %d lines, want %d:\n%s", len(lines), 1+SummaryErrorLimit+1, got)
		}
		if lines[0] != "0 valid records staged; 13 errors" {
			t.Errorf("header = %q", lines[0])
		}
		if lines[10] != "Row 10: bad" {
			t.Errorf("last listed error = %q, want Row 10: bad", lines[10])
		}
		if lines[11] != "...and 3 more errors" {
			t.Errorf("tail = %q, want ...and 3 more errors", lines[11])
		}
	})
}
