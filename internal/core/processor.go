package core

// processor.go maps parsed rows to validated student records.
//
// Two paths exist, selected by ImportMode:
//   - ProcessRows validates four-column rows and deduplicates by email.
//   - SynthesizeNameOnly turns a single column of names into records with
//     generated IDs and emails. These records are not validated.

import (
	"fmt"
	"strings"
)

// MissingFieldsMessage is appended to the row prefix for rows under four cells.
const MissingFieldsMessage = "Missing fields. Expected format: Student ID, Name, Email, Section"

// ProcessRows validates each row and returns the accepted records along with
// one error per rejected row. Row numbers are 1-based and shifted by one when
// the file had a header, so they match the line the user sees in the file.
// The first occurrence of an email wins; later ones are reported and dropped.
func ProcessRows(rows []RawRow, hasHeader bool) ProcessResult {
	var (
		candidates []StudentRecord
		errs       []string
	)

	offset := 1
	if hasHeader {
		offset = 2
	}

	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		n := i + offset

		if len(row) < RosterFieldCount {
			errs = append(errs, fmt.Sprintf("Row %d: %s", n, MissingFieldsMessage))
			continue
		}

		res := ValidateStudentRecord(RawRecord{
			StudentID: row[0],
			Name:      row[1],
			Email:     row[2],
			Section:   row[3],
		})
		if !res.Valid {
			errs = append(errs, fmt.Sprintf("Row %d: %s", n, strings.Join(res.Errors, ", ")))
			continue
		}
		candidates = append(candidates, *res.Record)
	}

	records, dupErrs := dedupeByEmail(candidates)
	return ProcessResult{
		Valid:  records,
		Errors: append(errs, dupErrs...),
	}
}

func dedupeByEmail(records []StudentRecord) ([]StudentRecord, []string) {
	seen := make(map[string]struct{}, len(records))
	kept := make([]StudentRecord, 0, len(records))
	var errs []string

	for _, rec := range records {
		key := strings.ToLower(rec.Email)
		if _, dup := seen[key]; dup {
			errs = append(errs, "Duplicate email in CSV: "+rec.Email)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, errs
}

// SynthesizeNameOnly builds one record per non-blank first cell. The nth
// name gets student ID ST%03d, email student{n}@example.com and section A.
func SynthesizeNameOnly(rows []RawRow) []StudentRecord {
	records := make([]StudentRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		n := len(records) + 1
		email := fmt.Sprintf("student%d@example.com", n)
		records = append(records, StudentRecord{
			StudentID: fmt.Sprintf("ST%03d", n),
			Name:      name,
			Email:     email,
			Section:   "A",
			ID:        email,
		})
	}
	return records
}

// isBlankRow reports whether every cell is empty after trimming.
func isBlankRow(row RawRow) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
