package core

import "strings"

// TemplateHeader is the column order expected in a full roster file.
var TemplateHeader = []string{"Student ID", "Name", "Email", "Section"}

var templateExample = []string{"ST001", "Jane Doe", "jane.doe@example.edu", "A"}

// TemplateFileName is suggested to browsers downloading the template.
const TemplateFileName = "roster_template.csv"

// TemplateCSV returns a header row and one example row, CRLF-terminated so
// spreadsheet programs open it cleanly.
func TemplateCSV() []byte {
	var b strings.Builder
	b.WriteString(strings.Join(TemplateHeader, ","))
	b.WriteString("\r\n")
	b.WriteString(strings.Join(templateExample, ","))
	b.WriteString("\r\n")
	return []byte(b.String())
}
