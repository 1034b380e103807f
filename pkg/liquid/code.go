package liquid

import (
	"strconv"
	"strings"
)

const fence = "```"

// codeGuard hides the content of fenced code blocks from the resolvers.
// Each block is replaced by its index followed by as many line breaks as
// the block had, so line numbers stay valid while it is hidden.
type codeGuard struct {
	codes []string
}

// save stores fn applied to every fenced block of input and returns input
// with the blocks replaced by placeholders.
func (c *codeGuard) save(input string, fn func(string) string) string {
	return replaceFenced(input, func(code string) string {
		c.codes = append(c.codes, fn(code))
		idx := len(c.codes) - 1
		return strconv.Itoa(idx) + strings.Repeat("\n", strings.Count(code, "\n"))
	})
}

// repair puts the stored blocks back in place of their placeholders.
func (c *codeGuard) repair(input string) string {
	if len(c.codes) == 0 {
		return input
	}
	return replaceFenced(input, func(placeholder string) string {
		idx, err := strconv.Atoi(strings.TrimSpace(placeholder))
		if err != nil || idx < 0 || idx >= len(c.codes) {
			return placeholder
		}
		return c.codes[idx]
	})
}

func replaceFenced(s string, fn func(string) string) string {
	var b strings.Builder
	pos := 0
	for {
		start := strings.Index(s[pos:], fence)
		if start < 0 {
			break
		}
		start += pos
		end := strings.Index(s[start+len(fence):], fence)
		if end < 0 {
			break
		}
		end += start + len(fence)

		b.WriteString(s[pos:start])
		b.WriteString(fence)
		b.WriteString(fn(s[start+len(fence) : end]))
		b.WriteString(fence)
		pos = end + len(fence)
	}
	b.WriteString(s[pos:])
	return b.String()
}
