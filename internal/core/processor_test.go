package core

import (
	"strings"
	"testing"
)

func TestProcessRows_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantValid  int
		wantErrors []string
	}{
		{
			name:      "header and two rows",
			text:      "ID,Name,Email,Section\nST1,Jane Doe,jane@x.edu,A\nST2,John Roe,john@x.edu,B",
			wantValid: 2,
		},
		{
			name:       "missing field without header",
			text:       "ST1,Jane Doe,jane@x.edu",
			wantValid:  0,
			wantErrors: []string{"Row 1: " + MissingFieldsMessage},
		},
		{
			name:       "duplicate email keeps first",
			text:       "ST1,Jane Doe,jane@x.edu,A\nST2,Janet Doe,JANE@x.edu,A",
			wantValid:  1,
			wantErrors: []string{"Duplicate email in CSV: jane@x.edu"},
		},
		{
			name:       "row number shifted by header",
			text:       "ID,Name,Email,Section\nST1,Jane Doe,jane@x.edu,A\nDROP TABLE,Bad,not-an-email,A",
			wantValid:  1,
			wantErrors: []string{"Row 3: studentId: Student ID contains invalid characters, email: Invalid email format"},
		},
		{
			name:      "extra cells ignored",
			text:      "ST1,Jane Doe,jane@x.edu,A,ignored",
			wantValid: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseCSV(tt.text)
			res := ProcessRows(parsed.DataRows, parsed.HasHeader)

			if len(res.Valid) != tt.wantValid {
				t.Errorf("len(Valid) = %d, want %d", len(res.Valid), tt.wantValid)
			}
			if len(res.Errors) != len(tt.wantErrors) {
				t.Fatalf("Errors = %v, want %v", res.Errors, tt.wantErrors)
			}
			for i := range tt.wantErrors {
				if res.Errors[i] != tt.wantErrors[i] {
					t.Errorf("Errors[%d] = %q, want %q", i, res.Errors[i], tt.wantErrors[i])
				}
			}
		})
	}
}

func TestProcessRows_DuplicateFirstWins(t *testing.T) {
	rows := []RawRow{
		{"ST1", "Jane Doe", "jane@x.edu", "A"},
		{"ST1", "Jane Doe", "jane@x.edu", "A"},
	}
	res := ProcessRows(rows, false)

	if len(res.Valid) != 1 || res.Valid[0].Name != "Jane Doe" {
		t.Fatalf("Valid = %+v, want the first row only", res.Valid)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Duplicate email") {
		t.Errorf("Errors = %v, want one duplicate error", res.Errors)
	}
}

func TestProcessRows_SkipsBlankRows(t *testing.T) {
	rows := []RawRow{
		{"", " ", "", ""},
		{"ST1", "Jane Doe", "jane@x.edu", "A"},
		{},
	}
	res := ProcessRows(rows, false)
	if len(res.Valid) != 1 || len(res.Errors) != 0 {
		t.Errorf("got %d valid, errors %v; want 1 valid, no errors", len(res.Valid), res.Errors)
	}
}

func TestProcessRows_ValidationBeforeDedupe(t *testing.T) {
	rows := []RawRow{
		{"ST1", "Jane Doe", "jane@x.edu", "A"},
		{"ST2", "Bad;Name", "john@x.edu", "A"},
		{"ST3", "Janet", "jane@x.edu", "B"},
	}
	res := ProcessRows(rows, false)

	want := []string{
		"Row 2: name: Name contains invalid characters",
		"Duplicate email in CSV: jane@x.edu",
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("Errors = %v, want %v", res.Errors, want)
	}
	for i := range want {
		if res.Errors[i] != want[i] {
			t.Errorf("Errors[%d] = %q, want %q", i, res.Errors[i], want[i])
		}
	}
}

func TestSynthesizeNameOnly(t *testing.T) {
	rows := []RawRow{{"Alice Smith"}, {"  "}, {"<b>Bob</b>"}}
	got := SynthesizeNameOnly(rows)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	want := []StudentRecord{
		{StudentID: "ST001", Name: "Alice Smith", Email: "student1@example.com", Section: "A", ID: "student1@example.com"},
		{StudentID: "ST002", Name: "<b>Bob</b>", Email: "student2@example.com", Section: "A", ID: "student2@example.com"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
