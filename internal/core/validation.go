package core

// validation.go provides field-level validation for roster records.
//
// Every validator returns a FieldResult whose Value is the sanitized input
// (HTML tags stripped, whitespace trimmed) even when validation fails, so
// callers can always echo a safe value back in error reports.
//
// ValidateStudentRecord runs all four validators and reports every failing
// field, not just the first.

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length limits, counted in characters.
const (
	MaxStudentIDLength = 50
	MaxNameLength      = 100
	MaxEmailLength     = 100
	MaxSectionLength   = 20
)

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]*>`)
	sqlInjectPattern = regexp.MustCompile(`(?i)['";]|\b(SELECT|INSERT|UPDATE|DELETE|DROP|UNION|ALTER)\b`)
	studentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	namePattern      = regexp.MustCompile(`^[\p{L}\p{M}\p{N} '.-]+$`)
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	sectionPattern   = regexp.MustCompile(`^[a-zA-Z0-9 _.-]+$`)
)

// nameForbidden lists characters rejected in names before any sanitizing.
const nameForbidden = "<>{}[]()\\`;"

// StripTags removes anything that looks like an HTML tag and trims the result.
func StripTags(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

func invalid(value, msg string) FieldResult {
	return FieldResult{Valid: false, Error: msg, Value: value}
}

func valid(value string) FieldResult {
	return FieldResult{Valid: true, Value: value}
}

func required(label string) string { return label + " is required" }

func tooLong(label string, max int) string {
	return fmt.Sprintf("%s is too long (max %d characters)", label, max)
}

func invalidChars(label string) string { return label + " contains invalid characters" }

// ValidateStudentID checks length, SQL-looking content, and the allowed
// character set [a-zA-Z0-9_-].
func ValidateStudentID(raw string) FieldResult {
	trimmed := strings.TrimSpace(raw)
	clean := StripTags(trimmed)

	switch {
	case trimmed == "":
		return invalid("", required("Student ID"))
	case utf8.RuneCountInString(trimmed) > MaxStudentIDLength:
		return invalid(clean, tooLong("Student ID", MaxStudentIDLength))
	case sqlInjectPattern.MatchString(clean):
		return invalid(clean, invalidChars("Student ID"))
	case !studentIDPattern.MatchString(clean):
		return invalid(clean, invalidChars("Student ID"))
	}
	return valid(clean)
}

// ValidateName accepts letters, digits, spaces, apostrophes, hyphens and periods.
func ValidateName(raw string) FieldResult {
	trimmed := strings.TrimSpace(raw)
	clean := StripTags(trimmed)

	switch {
	case trimmed == "":
		return invalid("", required("Name"))
	case utf8.RuneCountInString(trimmed) > MaxNameLength:
		return invalid(clean, tooLong("Name", MaxNameLength))
	case strings.ContainsAny(trimmed, nameForbidden):
		return invalid(clean, invalidChars("Name"))
	case !namePattern.MatchString(clean):
		return invalid(clean, invalidChars("Name"))
	}
	return valid(clean)
}

// ValidateEmail lowercases and trims the address before matching it.
func ValidateEmail(raw string) FieldResult {
	email := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case email == "":
		return invalid("", required("Email"))
	case !emailPattern.MatchString(email):
		return invalid(email, "Invalid email format")
	case utf8.RuneCountInString(email) > MaxEmailLength:
		return invalid(email, tooLong("Email", MaxEmailLength))
	}
	return valid(email)
}

// ValidateSection accepts letters, digits, spaces, hyphens, underscores and periods.
func ValidateSection(raw string) FieldResult {
	trimmed := strings.TrimSpace(raw)
	clean := StripTags(trimmed)

	switch {
	case trimmed == "":
		return invalid("", required("Section"))
	case utf8.RuneCountInString(trimmed) > MaxSectionLength:
		return invalid(clean, tooLong("Section", MaxSectionLength))
	case !sectionPattern.MatchString(clean):
		return invalid(clean, invalidChars("Section"))
	}
	return valid(clean)
}

// ValidateStudentRecord validates every field of rec. On failure Errors holds
// one "field: message" entry per failing field in column order.
func ValidateStudentRecord(rec RawRecord) RecordResult {
	checks := []struct {
		field  string
		result FieldResult
	}{
		{"studentId", ValidateStudentID(rec.StudentID)},
		{"name", ValidateName(rec.Name)},
		{"email", ValidateEmail(rec.Email)},
		{"section", ValidateSection(rec.Section)},
	}

	var errs []string
	for _, c := range checks {
		if !c.result.Valid {
			errs = append(errs, c.field+": "+c.result.Error)
		}
	}
	if len(errs) > 0 {
		return RecordResult{Valid: false, Errors: errs}
	}

	email := checks[2].result.Value
	return RecordResult{
		Valid: true,
		Record: &StudentRecord{
			StudentID: checks[0].result.Value,
			Name:      checks[1].result.Value,
			Email:     email,
			Section:   checks[3].result.Value,
			ID:        email,
		},
	}
}
