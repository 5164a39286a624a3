// Package sanitize cleans visitor-typed text before it is stored in a
// transcript or lead record and later rendered to an owner.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
	entities     = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`, "&#39;", "'")
)

// Text strips markup and control characters and collapses runs of blanks.
// Line breaks survive.
func Text(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entities.Replace(s)
	// Entity decoding can produce new tags.
	s = tagPattern.ReplaceAllString(s, "")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Line is Text folded onto a single line, for names and other short fields.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}
