// Package lexical holds the patterns that recognise template tags and the
// small grammar shared by the resolvers and the expression evaluator.
package lexical

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	quoted      = `'[^']*'|"[^"]*"`
	identifier  = `[\w\-|]+\??`
	subscript   = `\[(?:` + quoted + `|[\w\-.]+)\]`
	variable    = identifier + `(?:\.` + identifier + `|` + subscript + `)*`
	number      = `-?\d+\.?\d*|\.?\d+`
	boolean     = `true|false`
	varsContent = `[.\w\-|(),'=":\[\]+*/%<>!~@\s]+`
)

var (
	// Conditions matches a {%...%} tag together with at most one line break
	// (and the indentation after it) before the tag and one line break
	// after it. The {%- and -%} markers are accepted for compatibility and
	// do not trim whitespace.
	Conditions = regexp.MustCompile(`(?:\r?\n[\t ]*)?\{%-?([\s\S]*?)-?%\}(?:[\t ]*\r?\n)?`)

	// LegacyConditions matches a bare {%...%} tag.
	LegacyConditions = regexp.MustCompile(`\{%-?([\s\S]*?)-?%\}`)

	// Cycles matches for tags with the line break that follows them and
	// endfor tags with the line break that precedes them.
	Cycles = regexp.MustCompile(`\{%-?(?P<for>\s*for[^}]+?)-?%\}\n?|\n?\{%-?(?P<endfor>\s*endfor[^}]+?)-?%\}`)

	// Vars matches {{ expr }} substitutions, optionally escaped with a
	// not_var prefix.
	Vars = regexp.MustCompile(`(not_var)?(\{\{(` + varsContent + `)\}\})`)

	singleVariable = regexp.MustCompile(`^\{\{(` + varsContent + `)\}\}$`)
	tagLine        = regexp.MustCompile(`^\s*(` + identifier + `)\s*([\s\S]*)\s*$`)
	forSyntax      = regexp.MustCompile(`(\w+)\s+in\s+(` + variable + `)`)
	variableLine   = regexp.MustCompile(`^` + variable + `$`)
	literalLine    = regexp.MustCompile(`(?i)^(?:` + quoted + `|` + boolean + `|` + number + `)$`)
	numberLine     = regexp.MustCompile(`^(?:` + number + `)$`)
	boolLine       = regexp.MustCompile(`(?i)^(?:` + boolean + `)$`)
	quotedLine     = regexp.MustCompile(`^(?:` + quoted + `)$`)
	methodLine     = regexp.MustCompile(`^(slice)\(([^)]*)\)$`)
	methodArgSep   = regexp.MustCompile(`[\s,]+`)
)

// Tag is the keyword and argument string of a {%...%} tag body.
type Tag struct {
	Keyword string
	Args    string
}

// ParseTag splits a tag body such as " if user.admin " into its keyword and
// arguments.
func ParseTag(body string) (Tag, bool) {
	m := tagLine.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return Tag{}, false
	}
	return Tag{Keyword: m[1], Args: strings.TrimSpace(m[2])}, true
}

// ParseFor parses the arguments of a for tag, "item in collection".
func ParseFor(args string) (name, collection string, ok bool) {
	m := forSyntax.FindStringSubmatch(args)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsVariable reports whether s is a plain variable path like a.b[0].c.
func IsVariable(s string) bool { return variableLine.MatchString(s) }

// IsLiteral reports whether s is a number, boolean or quoted string.
func IsLiteral(s string) bool { return literalLine.MatchString(s) }

// SingleVariable returns the expression of s when s consists of exactly one
// {{ }} substitution.
func SingleVariable(s string) (string, bool) {
	m := singleVariable.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseLiteral converts a literal into a Go value: float64 or int64 for
// numbers, bool, or string without its quotes.
func ParseLiteral(s string) (any, error) {
	switch {
	case numberLine.MatchString(s):
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing number %q: %w", s, err)
		}
		return f, nil
	case boolLine.MatchString(s):
		return strings.EqualFold(s, "true"), nil
	case quotedLine.MatchString(s):
		return s[1 : len(s)-1], nil
	}
	return nil, fmt.Errorf("cannot parse %q as literal", s)
}

// Method is a call of one of the allow-listed methods, e.g. slice(1, 3).
type Method struct {
	Name string
	Args []string
}

// ParseMethod parses s as a call of a supported method.
func ParseMethod(s string) (Method, bool) {
	m := methodLine.FindStringSubmatch(s)
	if m == nil {
		return Method{}, false
	}
	var args []string
	for _, a := range methodArgSep.Split(m[2], -1) {
		if a != "" {
			args = append(args, a)
		}
	}
	return Method{Name: m[1], Args: args}, true
}
