package strings

import (
	"strings"
)

// DefaultValueMaxLen is the default maximum length for settings values in
// table output. Longer values, like a fully populated SERVICES list, would
// otherwise stretch the table past a terminal width.
const DefaultValueMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncateValue.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// TruncateValue truncates a string to maxLen characters and ensures
// single-line output. It replaces newlines with spaces, collapses runs of
// whitespace into single spaces, and adds "..." if truncated.
//
// The function operates on runes rather than bytes, so multi-byte characters
// are never cut in half.
//
// If maxLen is less than MinTruncateLen (4), it is clamped to MinTruncateLen
// to ensure there is room for at least one character plus "...".
func TruncateValue(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	// strings.Fields splits on any whitespace (\n, \r, \t, repeated spaces);
	// rejoining with single spaces normalizes the value to one line.
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
