package pipeline

import (
	"strings"
	"unicode"
)

// TrimInput strips surrounding whitespace and backticks from raw. When raw
// is a fenced code block, a language tag on the opening line is dropped too,
// as chat clients do when they render the block.
func TrimInput(raw string) string {
	s := strings.TrimSpace(raw)
	fenced := strings.HasPrefix(s, "```")
	s = strings.Trim(s, "`")

	if fenced {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && isFenceTag(s[:nl]) {
			s = s[nl+1:]
		}
	}
	return strings.TrimSpace(s)
}

// isFenceTag reports whether line is a single word naming a language.
func isFenceTag(line string) bool {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return false
	}
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("+-_#", r) {
			return false
		}
	}
	return true
}
