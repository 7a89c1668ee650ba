package core

// parser.go tokenizes roster CSV text into rows.
//
// The parser is line-oriented: line endings are normalized, blank lines are
// dropped, and each remaining line is split on commas that sit outside
// double quotes. A doubled quote inside a quoted field is a literal quote.
// Quoted newlines are not supported; a line break always ends a row.
//
// Structural problems (wrong field counts) are collected rather than
// returned, so a caller can report every bad row at once.

import (
	"fmt"
	"strings"
)

// RosterFieldCount is the number of columns in a full roster row.
const RosterFieldCount = 4

// tokenize is the row splitter used by ParseCSV. Tests replace it to drive
// the recovery path.
var tokenize = TokenizeLine

// headerHints are the substrings that mark row 0 as a header.
var headerHints = []string{"id", "name", "email", "section"}

// ParseCSV splits text into rows and reports structural errors.
// It never returns an error; a failure inside the tokenizer yields an empty
// result with a single "Failed to parse CSV" entry in Errors.
func ParseCSV(text string) (result ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ParseResult{
				Rows:     []RawRow{},
				DataRows: []RawRow{},
				Errors:   []string{fmt.Sprintf("Failed to parse CSV: %v", r)},
			}
		}
	}()

	rows := make([]RawRow, 0)
	for _, line := range splitLines(text) {
		rows = append(rows, tokenize(line))
	}

	result.Rows = rows
	result.HasHeader = len(rows) > 0 && LooksLikeHeader(rows[0])
	result.IsSingleColumn = isSingleColumn(rows)

	if !result.IsSingleColumn {
		for i, row := range rows {
			if len(row) != RosterFieldCount {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Row %d: Expected %d fields, found %d", i+1, RosterFieldCount, len(row)))
			}
		}
	}

	if result.HasHeader && len(rows) > 1 {
		result.DataRows = rows[1:]
	} else {
		result.DataRows = rows
	}
	return result
}

// splitLines normalizes \r\n and \r to \n and drops blank lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// TokenizeLine splits one CSV line into trimmed cells.
func TokenizeLine(line string) RawRow {
	var (
		cells    RawRow
		cell     strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"':
			cell.WriteRune('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(ch)
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

// LooksLikeHeader reports whether any cell contains a header hint,
// case-insensitively. A headerless first row holding a value such as
// "id2024" is misread as a header.
func LooksLikeHeader(row RawRow) bool {
	for _, cell := range row {
		lower := strings.ToLower(cell)
		for _, hint := range headerHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}

func isSingleColumn(rows []RawRow) bool {
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if len(row) != 1 {
			return false
		}
	}
	return true
}
