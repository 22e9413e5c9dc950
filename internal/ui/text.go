package ui

import (
	"strings"
)

// termWidthFormatText wraps text to maxWidth columns, collapsing existing
// whitespace. Words longer than maxWidth are left unbroken on their own line.
func termWidthFormatText(text string, maxWidth int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	lineLen := 0

	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}

		if lineLen+1+len(word) > maxWidth {
			b.WriteByte('\n')
			b.WriteString(word)
			lineLen = len(word)
			continue
		}

		b.WriteByte(' ')
		b.WriteString(word)
		lineLen += 1 + len(word)
	}

	return b.String()
}
