// Package expr evaluates the expressions used in condition tags, loop
// collections and substitutions.
//
// The language is deliberately small: literals, variable paths, the
// operators or, and, not, comparisons, contains, filter pipes, and the
// allow-listed slice method. Truthiness follows the documentation tooling
// conventions: empty strings, zero and missing values are false, lists and
// maps are always true.
package expr

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/neurodesk/liquid/pkg/lexical"
)

var (
	orOp   = regexp.MustCompile(`\s+or\s+`)
	andOp  = regexp.MustCompile(`\s+and\s+`)
	cmpOp  = regexp.MustCompile(`==|!=|<=|>=|<|>|\s+contains\s+`)
	pipeOp = regexp.MustCompile(`\s+\|\s*|\|\s+`)
	index  = regexp.MustCompile(`^-?\d+$`)
)

type Evaluator struct {
	Filters Filters
}

func NewEvaluator() *Evaluator { return &Evaluator{Filters: DefaultFilters()} }

// Eval evaluates expr against scope. In strict mode a reference to an
// undefined variable makes the whole expression Unresolved; otherwise the
// variable evaluates to NoneValue.
func (e *Evaluator) Eval(expr string, scope Scope, strict bool) (Value, error) {
	return e.eval(expr, scope, strict)
}

func (e *Evaluator) eval(s string, scope Scope, strict bool) (Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return NoneValue{}, nil
	case lexical.IsLiteral(s):
		v, err := lexical.ParseLiteral(s)
		if err != nil {
			return nil, err
		}
		return FromGo(v), nil
	case lexical.IsVariable(s):
		return e.variable(s, scope, strict)
	}

	masked := mask(s)
	if loc := orOp.FindStringIndex(masked); loc != nil {
		return e.logical(s[:loc[0]], s[loc[1]:], true, scope, strict)
	}
	if loc := andOp.FindStringIndex(masked); loc != nil {
		return e.logical(s[:loc[0]], s[loc[1]:], false, scope, strict)
	}
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		v, err := e.eval(rest, scope, strict)
		if err != nil || IsUnresolved(v) {
			return v, err
		}
		return BoolValue(!v.Truth()), nil
	}
	if loc := cmpOp.FindStringIndex(masked); loc != nil {
		op := strings.TrimSpace(s[loc[0]:loc[1]])
		return e.compare(op, s[:loc[0]], s[loc[1]:], scope, strict)
	}
	if pipeOp.MatchString(masked) {
		return e.pipeline(s, masked, scope, strict)
	}
	if i := strings.LastIndexByte(masked, '.'); i > 0 {
		if m, ok := lexical.ParseMethod(s[i+1:]); ok {
			target, err := e.eval(s[:i], scope, strict)
			if err != nil || IsUnresolved(target) {
				return target, err
			}
			return callMethod(target, m)
		}
	}
	if s[0] == '(' && closing(masked) == len(s)-1 {
		return e.eval(s[1:len(s)-1], scope, strict)
	}
	return nil, fmt.Errorf("cannot evaluate expression %q", s)
}

func (e *Evaluator) logical(left, right string, or bool, scope Scope, strict bool) (Value, error) {
	l, err := e.eval(left, scope, strict)
	if err != nil || IsUnresolved(l) {
		return l, err
	}
	if l.Truth() == or {
		return l, nil
	}
	return e.eval(right, scope, strict)
}

func (e *Evaluator) compare(op, left, right string, scope Scope, strict bool) (Value, error) {
	l, err := e.eval(left, scope, strict)
	if err != nil {
		return nil, err
	}
	r, err := e.eval(right, scope, strict)
	if err != nil {
		return nil, err
	}
	if IsUnresolved(l) || IsUnresolved(r) {
		return Unresolved, nil
	}
	switch op {
	case "==":
		return BoolValue(equal(l, r)), nil
	case "!=":
		return BoolValue(!equal(l, r)), nil
	case "contains":
		return BoolValue(contains(l, r)), nil
	}
	c, ok := order(l, r)
	if !ok {
		return BoolValue(false), nil
	}
	switch op {
	case "<":
		return BoolValue(c < 0), nil
	case "<=":
		return BoolValue(c <= 0), nil
	case ">":
		return BoolValue(c > 0), nil
	case ">=":
		return BoolValue(c >= 0), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func (e *Evaluator) pipeline(s, masked string, scope Scope, strict bool) (Value, error) {
	var parts []string
	last := 0
	for _, loc := range pipeOp.FindAllStringIndex(masked, -1) {
		parts = append(parts, s[last:loc[0]])
		last = loc[1]
	}
	parts = append(parts, s[last:])

	val, err := e.eval(parts[0], scope, strict)
	if err != nil {
		return nil, err
	}
	for _, f := range parts[1:] {
		name, argExprs := parseFilterCall(f)
		fn := e.Filters[name]
		if fn == nil {
			return nil, fmt.Errorf("unknown filter: %s", name)
		}
		if IsUnresolved(val) {
			if name != "default" {
				return Unresolved, nil
			}
			val = NoneValue{}
		}
		args := make([]Value, 0, len(argExprs))
		for _, a := range argExprs {
			v, err := e.eval(a, scope, strict)
			if err != nil {
				return nil, err
			}
			if IsUnresolved(v) {
				return Unresolved, nil
			}
			args = append(args, v)
		}
		if val, err = fn(val, args); err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
	}
	return val, nil
}

// parseFilterCall accepts both name(a, b) and name: a, b.
func parseFilterCall(s string) (string, []string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 && strings.HasSuffix(s, ")") {
		return strings.TrimSpace(s[:i]), splitArgs(s[i+1 : len(s)-1])
	}
	if name, args, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(name), splitArgs(args)
	}
	return s, nil
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	masked := mask(s)
	var parts []string
	last := 0
	for i := 0; i < len(masked); i++ {
		if masked[i] == ',' {
			parts = append(parts, strings.TrimSpace(s[last:i]))
			last = i + 1
		}
	}
	return append(parts, strings.TrimSpace(s[last:]))
}

func (e *Evaluator) variable(path string, scope Scope, strict bool) (Value, error) {
	segs := splitPath(path)
	missing := Value(NoneValue{})
	if strict {
		missing = Unresolved
	}
	if scope == nil {
		return missing, nil
	}

	cur, ok := scope.Lookup(segs[0].key)
	if !ok {
		return missing, nil
	}
	for _, seg := range segs[1:] {
		key := seg.key
		if seg.expr != "" {
			v, err := e.eval(seg.expr, scope, strict)
			if err != nil || IsUnresolved(v) {
				return v, err
			}
			key = v.String()
		}
		if cur, ok = lookup(cur, key); !ok {
			return missing, nil
		}
	}
	return FromGo(cur), nil
}

type segment struct {
	key  string
	expr string
}

// splitPath splits a variable path such as a.b[0]['c'][d] into segments.
// Subscripts that are neither quoted nor numeric are evaluated as
// expressions.
func splitPath(path string) []segment {
	var segs []segment
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			segs = append(segs, segment{key: b.String()})
			b.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := closingBracket(path, i)
			inner := strings.TrimSpace(path[i+1 : end])
			switch {
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"'):
				segs = append(segs, segment{key: inner[1 : len(inner)-1]})
			case index.MatchString(inner):
				segs = append(segs, segment{key: inner})
			default:
				segs = append(segs, segment{expr: inner})
			}
			i = end
		default:
			b.WriteByte(c)
		}
	}
	flush()
	if len(segs) == 0 {
		segs = append(segs, segment{key: path})
	}
	return segs
}

func closingBracket(s string, open int) int {
	inStr := byte(0)
	for i := open + 1; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr != 0:
			if c == inStr {
				inStr = 0
			}
		case c == '\'' || c == '"':
			inStr = c
		case c == ']':
			return i
		}
	}
	return len(s) - 1
}

func lookup(v any, key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		switch rv.Type().Key().Kind() {
		case reflect.String:
			mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if mv.IsValid() {
				return mv.Interface(), true
			}
		case reflect.Interface:
			mv := rv.MapIndex(reflect.ValueOf(key))
			if mv.IsValid() {
				return mv.Interface(), true
			}
		}
		return nil, false
	case reflect.Slice, reflect.Array:
		switch key {
		case "size", "length":
			return rv.Len(), true
		case "first":
			if rv.Len() > 0 {
				return rv.Index(0).Interface(), true
			}
			return nil, false
		case "last":
			if rv.Len() > 0 {
				return rv.Index(rv.Len() - 1).Interface(), true
			}
			return nil, false
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.String:
		if key == "size" || key == "length" {
			return len([]rune(rv.String())), true
		}
		return nil, false
	case reflect.Struct:
		f := rv.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, key) })
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
		return nil, false
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
		return lookup(rv.Elem().Interface(), key)
	}
	return nil, false
}

func equal(a, b Value) bool {
	if an, ok := number(a); ok {
		bn, ok := number(b)
		return ok && an == bn
	}
	switch x := a.(type) {
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x == y
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x == y
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case ListValue:
		y, ok := b.(ListValue)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func order(a, b Value) (int, bool) {
	if an, ok := number(a); ok {
		bn, ok := number(b)
		if !ok {
			return 0, false
		}
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		}
		return 0, true
	}
	x, ok1 := a.(StringValue)
	y, ok2 := b.(StringValue)
	if !ok1 || !ok2 {
		return 0, false
	}
	return strings.Compare(string(x), string(y)), true
}

func contains(haystack, needle Value) bool {
	switch h := haystack.(type) {
	case ListValue:
		for _, item := range h {
			if equal(item, needle) {
				return true
			}
		}
	case StringValue:
		switch needle.(type) {
		case StringValue, IntValue, FloatValue:
			return strings.Contains(string(h), needle.String())
		}
	case DictValue:
		_, ok := h[needle.String()]
		return ok
	}
	return false
}

func callMethod(target Value, m lexical.Method) (Value, error) {
	switch m.Name {
	case "slice":
		bounds := make([]int, 0, len(m.Args))
		for _, a := range m.Args {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				f = 0
			}
			bounds = append(bounds, int(f))
		}
		switch t := target.(type) {
		case ListValue:
			start, end := sliceBounds(len(t), bounds)
			return append(ListValue(nil), t[start:end]...), nil
		case NoneValue:
			return t, nil
		default:
			r := []rune(target.String())
			start, end := sliceBounds(len(r), bounds)
			return StringValue(string(r[start:end])), nil
		}
	}
	return nil, fmt.Errorf("unsupported method %s", m.Name)
}

// sliceBounds resolves start and end the way String.prototype.slice does:
// negative positions count from the end and out of range positions clamp.
func sliceBounds(n int, args []int) (int, int) {
	clamp := func(i int) int {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	start, end := 0, n
	if len(args) > 0 {
		start = clamp(args[0])
	}
	if len(args) > 1 {
		end = clamp(args[1])
	}
	if end < start {
		end = start
	}
	return start, end
}

// mask blanks out the inside of quoted strings and parentheses so that
// operators are only searched for at the top level. The result has the
// same length as s.
func mask(s string) string {
	b := []byte(s)
	inStr := byte(0)
	depth := 0
	for i, c := range b {
		switch {
		case inStr != 0:
			if c == inStr {
				inStr = 0
			} else {
				b[i] = 0
			}
		case c == '\'' || c == '"':
			inStr = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
			b[i] = 0
		}
	}
	return string(b)
}

// closing returns the index of the parenthesis closing the one at index 0
// of a masked string.
func closing(masked string) int {
	depth := 0
	for i := 0; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
