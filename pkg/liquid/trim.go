package liquid

import (
	"regexp"
	"strings"
)

var (
	headBreak = regexp.MustCompile(`^([^{]+)\{.*`)
	tailBreak = regexp.MustCompile(`.*\}(\s*\n)$`)
)

// headLinebreak returns the line break and indentation a tag match
// consumed before its opening delimiter.
func headLinebreak(raw string) string {
	if m := headBreak.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// tailLinebreak returns the line break a tag match consumed after its
// closing delimiter.
func tailLinebreak(raw string) string {
	if m := tailBreak.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// newline returns the line break at the start or the end of a captured
// break: "\r\n" when the document uses CRLF, "\n" otherwise.
func newline(brk string) string {
	if strings.HasPrefix(brk, "\r\n") || strings.HasSuffix(brk, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// removeIndentBlock drops trailing spaces when they only indent an empty
// last line.
func removeIndentBlock(s string) string {
	trimmed := strings.TrimRight(s, " ")
	if strings.HasSuffix(trimmed, "\n") {
		return trimmed
	}
	return s
}

// preparedLeft is the text before a block, without the indentation of the
// block's first line when the block expands to nothing.
func preparedLeft(content string, start int, result string) string {
	left := content[:start]
	if result == "" {
		return removeIndentBlock(left)
	}
	return left
}

// collapseShift reports whether one line break after end must be dropped.
// When a block expanded to nothing and sat on its own line, keeping both
// line breaks around it would introduce a blank line.
func collapseShift(left, content string, end int, result string) int {
	if result == "" && strings.HasSuffix(left, "\n") && end < len(content) && content[end] == '\n' {
		return 1
	}
	return 0
}
