// Package templates renders the HTML fragments returned to HTMX requests.
//
// Components live in templates.templ; templates_templ.go is generated from
// it with `templ generate`.
package templates

import (
	"net/url"
	"strings"
)

func summaryHeadline(summary string) string {
	headline, _, _ := strings.Cut(summary, "\n")
	return headline
}

func summaryErrors(summary string) []string {
	_, rest, found := strings.Cut(summary, "\n")
	if !found || rest == "" {
		return nil
	}
	return strings.Split(rest, "\n")
}

// removeStagedPath builds the DELETE route for one staged email. Both
// segments are path-escaped so emails containing '%' or '/' survive routing.
func removeStagedPath(courseID, email string) string {
	return "/api/courses/" + url.PathEscape(courseID) + "/roster/staged/" + url.PathEscape(email)
}
