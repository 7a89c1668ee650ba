package core

import (
	"fmt"
	"strings"
)

// SummaryErrorLimit is how many errors Summary lists before collapsing the rest.
const SummaryErrorLimit = 10

// Summary renders the result line shown after an import, e.g.
//
//	2 valid records staged; 12 errors
//	Row 3: Missing fields. Expected format: Student ID, Name, Email, Section
//	...
//	...and 2 more errors
func Summary(staged int, errs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d valid records staged; %d errors", staged, len(errs))

	shown := errs
	if len(shown) > SummaryErrorLimit {
		shown = shown[:SummaryErrorLimit]
	}
	for _, e := range shown {
		b.WriteString("\n")
		b.WriteString(e)
	}
	if rest := len(errs) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n...and %d more errors", rest)
	}
	return b.String()
}
