package core

import (
	"strings"
	"testing"
)

func TestValidateStudentID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantErr   string
		wantValue string
	}{
		{"simple id", "ST001", true, "", "ST001"},
		{"trimmed", "  ab_12-x  ", true, "", "ab_12-x"},
		{"empty", "   ", false, "Student ID is required", ""},
		{"exactly max length", strings.Repeat("a", 50), true, "", strings.Repeat("a", 50)},
		{"too long", strings.Repeat("a", 51), false, "Student ID is too long (max 50 characters)", strings.Repeat("a", 51)},
		{"drop table", "DROP TABLE", false, "Student ID contains invalid characters", "DROP TABLE"},
		{"keyword case insensitive", "x select y", false, "Student ID contains invalid characters", "x select y"},
		{"keyword inside word passes sql check", "SELECTED", true, "", "SELECTED"},
		{"single quote", "ST'1", false, "Student ID contains invalid characters", "ST'1"},
		{"semicolon", "ST1;", false, "Student ID contains invalid characters", "ST1;"},
		{"html stripped", "<b>ST9</b>", true, "", "ST9"},
		{"space rejected", "ST 1", false, "Student ID contains invalid characters", "ST 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStudentID(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (error %q)", got.Valid, tt.wantValid, got.Error)
			}
			if got.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantErr)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantErr   string
	}{
		{"plain", "Jane Doe", true, ""},
		{"apostrophe hyphen period", "Mary-Jane O'Neil Jr.", true, ""},
		{"accented letters", "José Núñez", true, ""},
		{"exactly 100 letters", strings.Repeat("a", 100), true, ""},
		{"101 letters", strings.Repeat("a", 101), false, "Name is too long (max 100 characters)"},
		{"empty", "", false, "Name is required"},
		{"angle bracket", "Jane <script>", false, "Name contains invalid characters"},
		{"parentheses", "Jane (JD)", false, "Name contains invalid characters"},
		{"semicolon", "Jane; Doe", false, "Name contains invalid characters"},
		{"backtick", "Jane`", false, "Name contains invalid characters"},
		{"at sign", "jane@doe", false, "Name contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateName(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (error %q)", got.Valid, tt.wantValid, got.Error)
			}
			if got.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantErr   string
		wantValue string
	}{
		{"lowercased", "  Jane@X.EDU ", true, "", "jane@x.edu"},
		{"plus and dots", "a.b+c@sub.example.org", true, "", "a.b+c@sub.example.org"},
		{"missing tld", "jane@x", false, "Invalid email format", "jane@x"},
		{"no at", "jane.x.edu", false, "Invalid email format", "jane.x.edu"},
		{"empty", "", false, "Email is required", ""},
		{"too long", strings.Repeat("a", 95) + "@x.edu", false, "Email is too long (max 100 characters)", strings.Repeat("a", 95) + "@x.edu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateEmail(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (error %q)", got.Valid, tt.wantValid, got.Error)
			}
			if got.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantErr)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
		})
	}
}

func TestValidateSection(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantErr   string
	}{
		{"letter", "A", true, ""},
		{"mixed", "Lab_2.b-1 PM", true, ""},
		{"exactly 20", strings.Repeat("s", 20), true, ""},
		{"too long", strings.Repeat("s", 21), false, "Section is too long (max 20 characters)"},
		{"empty", " ", false, "Section is required"},
		{"slash", "A/B", false, "Section contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSection(tt.input)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (error %q)", got.Valid, tt.wantValid, got.Error)
			}
			if got.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", got.Error, tt.wantErr)
			}
		})
	}
}

func TestValidateStudentRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		res := ValidateStudentRecord(RawRecord{StudentID: "ST1", Name: "Jane Doe", Email: "Jane@X.edu", Section: "A"})
		if !res.Valid {
			t.Fatalf("expected valid, got errors %v", res.Errors)
		}
		want := StudentRecord{StudentID: "ST1", Name: "Jane Doe", Email: "jane@x.edu", Section: "A", ID: "jane@x.edu"}
		if *res.Record != want {
			t.Errorf("Record = %+v, want %+v", *res.Record, want)
		}
	})

	t.Run("reports every failing field", func(t *testing.T) {
		res := ValidateStudentRecord(RawRecord{StudentID: "DROP TABLE", Name: "", Email: "bad", Section: "A"})
		if res.Valid {
			t.Fatal("expected invalid")
		}
		if res.Record != nil {
			t.Error("Record should be nil when invalid")
		}
		want := []string{
			"studentId: Student ID contains invalid characters",
			"name: Name is required",
			"email: Invalid email format",
		}
		if len(res.Errors) != len(want) {
			t.Fatalf("Errors = %v, want %v", res.Errors, want)
		}
		for i := range want {
			if res.Errors[i] != want[i] {
				t.Errorf("Errors[%d] = %q, want %q", i, res.Errors[i], want[i])
			}
		}
	})
}

func TestStripTags(t *testing.T) {
	if got := StripTags("  <i>Hello</i> world "); got != "Hello world" {
		t.Errorf("StripTags = %q, want %q", got, "Hello world")
	}
}
