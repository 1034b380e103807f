package lexical

import "regexp"

// Match is one tag found by a Scanner.
type Match struct {
	// Start and End are byte offsets of the match in the scanned text.
	Start int
	End   int
	// Raw is the matched text, including any line breaks the pattern
	// consumed around the delimiters.
	Raw string
	// Body is the text between {% and %}.
	Body string
	// Group is the name of the capture group Body came from, if any.
	Group string
}

// Tag parses the body of the match.
func (m Match) Tag() (Tag, bool) { return ParseTag(m.Body) }

// Scanner finds successive matches of a tag pattern. The text being scanned
// may be swapped out between calls to Next, which is how resolvers continue
// scanning after rewriting a block.
type Scanner struct {
	re    *regexp.Regexp
	names []string
	input string
	pos   int
}

// NewScanner starts scanning input from the beginning.
func NewScanner(re *regexp.Regexp, input string) *Scanner {
	return &Scanner{re: re, names: re.SubexpNames(), input: input}
}

// Seek replaces the scanned text and moves the cursor to pos.
func (s *Scanner) Seek(input string, pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(input) {
		pos = len(input)
	}
	s.input = input
	s.pos = pos
}

// Next returns the first match at or after the cursor and moves the cursor
// past it.
func (s *Scanner) Next() (Match, bool) {
	if s.pos > len(s.input) {
		return Match{}, false
	}
	loc := s.re.FindStringSubmatchIndex(s.input[s.pos:])
	if loc == nil {
		return Match{}, false
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += s.pos
		}
	}

	m := Match{Start: loc[0], End: loc[1], Raw: s.input[loc[0]:loc[1]]}
	for i := 1; i < len(loc)/2; i++ {
		if loc[2*i] < 0 {
			continue
		}
		m.Body = s.input[loc[2*i]:loc[2*i+1]]
		m.Group = s.names[i]
		break
	}
	s.pos = m.End
	return m, true
}
