package strings

import (
	"strings"
)

// Ellipsis marks truncated output.
const Ellipsis = "..."

// MinTruncateLen is the minimum maxLen value for Truncate and TruncateDescription.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Truncate shortens s to at most maxLen runes, the last three of which are
// "..." when something was cut. Multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
}

// TruncateDescription collapses all whitespace (including newlines) into
// single spaces and then truncates like Truncate, giving single-line output
// for table cells.
func TruncateDescription(s string, maxLen int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
