package liquid

import (
	"strings"

	"github.com/neurodesk/liquid/pkg/expr"
	"github.com/neurodesk/liquid/pkg/lexical"
)

// substitute replaces every {{ expr }} in input with the value of expr.
// Substitutions whose value cannot be found are left as written.
func (e *Engine) substitute(input string, scope expr.Scope) string {
	if path, ok := lexical.SingleVariable(input); ok {
		path = strings.TrimSpace(path)
		if strings.HasPrefix(path, ".") {
			return input
		}
		if v, ok := e.lookup(path, scope); ok {
			return v.String()
		}
		return input
	}

	locs := lexical.Vars.FindAllStringSubmatchIndex(input, -1)
	if locs == nil {
		return input
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(input[last:loc[0]])
		last = loc[1]

		match := input[loc[0]:loc[1]]
		tmpl := input[loc[4]:loc[5]]
		if loc[2] >= 0 {
			if e.settings.KeepNotVar {
				b.WriteString(match)
			} else {
				b.WriteString(tmpl)
			}
			continue
		}

		path := strings.TrimSpace(input[loc[6]:loc[7]])
		if strings.HasPrefix(path, ".") {
			b.WriteString(tmpl)
			continue
		}
		if v, ok := e.lookup(path, scope); ok {
			b.WriteString(v.String())
		} else {
			b.WriteString(match)
		}
	}
	b.WriteString(input[last:])
	return b.String()
}

// substituteValue resolves input when it is exactly one {{ expr }}. The
// value keeps its type instead of being rendered as text. A missing value
// resolves to input itself.
func (e *Engine) substituteValue(input string, scope expr.Scope) (any, bool) {
	if !e.settings.Substitutions {
		return nil, false
	}
	path, ok := lexical.SingleVariable(input)
	if !ok {
		return nil, false
	}
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, ".") {
		return input, true
	}
	if v, ok := e.lookup(path, scope); ok {
		return expr.ToGo(v), true
	}
	return input, true
}

func (e *Engine) lookup(path string, scope expr.Scope) (expr.Value, bool) {
	v, err := e.evaluator.Eval(path, scope, true)
	if err != nil {
		e.logger.Error("Cannot evaluate variable", e.attrs("variable", path, "error", err)...)
		return nil, false
	}
	if expr.IsUnresolved(v) {
		e.logger.Warn("Variable not found", e.attrs("variable", path)...)
		return nil, false
	}
	return v, true
}
