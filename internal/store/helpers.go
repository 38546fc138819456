// ABOUTME: SQL helpers for building activity log filters.
// ABOUTME: Escapes LIKE patterns so user-supplied path prefixes match literally.

package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeSQLLike escapes the LIKE wildcards % and _ and the escape character
// itself. Queries must declare ESCAPE '\'.
func escapeSQLLike(pattern string) string {
	return likeEscaper.Replace(pattern)
}

// prefixPattern returns a LIKE pattern matching strings that start with prefix.
func prefixPattern(prefix string) string {
	return escapeSQLLike(prefix) + "%"
}
