// Package sanitize strips markup from free text typed by users before it is
// stored and later rendered into PDFs and the web UI.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes every HTML tag and trims surrounding whitespace. Entities
// produced by the policy are decoded again so "Tornillos & Pernos" survives.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// OptionalText sanitizes a nullable field. Blank results become nil.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := Text(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
