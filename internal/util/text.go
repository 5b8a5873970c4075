package util

import (
	"regexp"
	"strings"
)

var reManyNewlines = regexp.MustCompile(`\n{3,}`)

// SanitizeText drops invalid UTF-8 and NUL bytes, which neither Neo4j string
// properties nor Postgres text columns accept, and collapses runs of blank lines.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	sanitized = strings.ReplaceAll(sanitized, "\r\n", "\n")
	return reManyNewlines.ReplaceAllString(sanitized, "\n\n")
}
