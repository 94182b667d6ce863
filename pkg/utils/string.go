package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes shortens s to at most maxRunes runes, marking the cut with
// an ellipsis. It never splits a multi-byte character.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes == 1 {
		return string(runes[:1])
	}
	return string(runes[:maxRunes-1]) + "…"
}

// MaskSecret keeps the last visible characters of a secret for logging.
func MaskSecret(s string, visible int) string {
	if s == "" {
		return ""
	}
	if visible < 0 {
		visible = 0
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
