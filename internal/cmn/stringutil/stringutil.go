package stringutil

import (
	"strconv"
	"strings"
)

// TruncString returns val cut to at most max runes, marking the cut with "...".
func TruncString(val string, max int) string {
	runes := []rune(val)
	if len(runes) <= max {
		return val
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// RemoveQuotes removes matching surrounding double or single quotes.
func RemoveQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
