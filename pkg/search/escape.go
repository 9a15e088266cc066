package search

import "strings"

// Backslash must be escaped too: the stores declare ESCAPE '\', so a bare
// trailing backslash in user input would otherwise swallow the appended
// wildcard. Replacer runs in one pass, so produced text is never re-escaped.
var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapeLike escapes LIKE metacharacters in s so the string matches only
// itself under LIKE ... ESCAPE '\'. User input is never interpreted as a
// wildcard.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// LikePattern builds the prefix-match pattern for s: every metacharacter
// escaped, a single trailing % appended.
func LikePattern(s string) string {
	return EscapeLike(s) + "%"
}
