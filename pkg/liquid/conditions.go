package liquid

import (
	"regexp"
	"strings"

	"github.com/neurodesk/liquid/pkg/expr"
	"github.com/neurodesk/liquid/pkg/lexical"
	"github.com/neurodesk/liquid/pkg/sourcemap"
)

// branch is one if, elsif or else segment of a condition group.
type branch struct {
	expr     string
	rawStart string // tag that opened the branch
	rawEnd   string // tag that closed it: the next elsif/else or endif
	start    int    // first byte of the content
	end      int    // one past the last byte of the content
}

// conditionGroup is an if...endif block. Branches are appended while the
// group is open; once endif closes it the group is not modified again.
type conditionGroup struct {
	branches []branch
}

// open starts a new branch at tag m and returns where scanning continues.
// The line break after the tag is left to be matched by the next tag.
func (g *conditionGroup) open(m lexical.Match, expr string) int {
	g.close(m)
	g.branches = append(g.branches, branch{expr: expr, rawStart: m.Raw, start: m.End})
	return m.End - len(tailLinebreak(m.Raw))
}

func (g *conditionGroup) close(m lexical.Match) {
	if n := len(g.branches); n > 0 {
		g.branches[n-1].rawEnd = m.Raw
		g.branches[n-1].end = m.Start
	}
}

func (g *conditionGroup) first() branch { return g.branches[0] }
func (g *conditionGroup) last() branch  { return g.branches[len(g.branches)-1] }

// start and end delimit the whole group including its tags.
func (g *conditionGroup) start() int { return g.first().start - len(g.first().rawStart) }
func (g *conditionGroup) end() int   { return g.last().end + len(g.last().rawEnd) }

// isBlock reports whether the opening tag ends its line and the closing tag
// starts its line.
func (g *conditionGroup) isBlock() bool {
	return tailLinebreak(g.first().rawStart) != "" && headLinebreak(g.last().rawEnd) != ""
}

// trimPolicy is the part of condition resolution that differs between the
// current and the legacy whitespace handling.
type trimPolicy interface {
	pattern() *regexp.Regexp
	// splice replaces the group in content with the selected branch, or with
	// nothing when sel is nil, and returns the new content and the offset
	// scanning resumes from.
	splice(content string, g *conditionGroup, sel *branch) (string, int)
	// record patches sm for the rewrite splice is about to perform.
	record(sm sourcemap.Patcher, content string, g *conditionGroup, sel *branch)
	// orphan handles an elsif or else outside of any group.
	orphan(e *Engine, keyword string) error
}

type conditionResolver struct {
	policy   trimPolicy
	strict   bool
	keepTrue bool
}

func (e *Engine) conditionResolver() conditionResolver {
	if e.settings.LegacyConditions {
		return conditionResolver{policy: legacyTrim{}}
	}
	return conditionResolver{
		policy:   blockTrim{},
		strict:   e.settings.Conditions == ConditionsStrict,
		keepTrue: e.settings.KeepConditionSyntaxOnTrue,
	}
}

func (e *Engine) conditions(input string, p pass) (string, error) {
	r := e.conditionResolver()
	sc := lexical.NewScanner(r.policy.pattern(), input)
	var stack []*conditionGroup

	for {
		m, ok := sc.Next()
		if !ok {
			break
		}
		tag, ok := m.Tag()
		if !ok {
			continue
		}

		switch tag.Keyword {
		case "if":
			g := &conditionGroup{}
			sc.Seek(input, g.open(m, tag.Args))
			stack = append(stack, g)
		case "elsif", "else":
			if len(stack) == 0 {
				if err := r.policy.orphan(e, tag.Keyword); err != nil {
					return input, err
				}
				continue
			}
			sc.Seek(input, stack[len(stack)-1].open(m, tag.Args))
		case "endif":
			if len(stack) == 0 {
				e.logger.Error("If block must be opened before close", e.attrs()...)
				continue
			}
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			g.close(m)

			sel, keep := r.choose(e, g, p.scope)
			if keep {
				sc.Seek(input, g.end()-len(tailLinebreak(g.last().rawEnd)))
				continue
			}
			if p.sm != nil {
				r.policy.record(p.sm, input, g, sel)
			}
			var next int
			input, next = r.policy.splice(input, g, sel)
			sc.Seek(input, next)
		default:
			// Not a condition. Give back the line break after it so the
			// next tag can claim it.
			sc.Seek(input, m.End-len(tailLinebreak(m.Raw)))
		}
	}

	if len(stack) != 0 {
		e.logger.Error("Condition block must be closed", e.attrs()...)
	}
	return input, nil
}

// choose returns the first branch whose expression is empty or truthy.
// keep is set when the group must stay in the text as written: in strict
// mode because an expression is unresolved, or with keepTrue because the
// chosen expression is literally true.
func (r conditionResolver) choose(e *Engine, g *conditionGroup, scope expr.Scope) (sel *branch, keep bool) {
	for i := range g.branches {
		b := &g.branches[i]
		val, err := e.evaluator.Eval(b.expr, scope, r.strict)
		if err != nil {
			e.logger.Error("Cannot evaluate condition", e.attrs("expr", b.expr, "error", err)...)
			val = expr.NoneValue{}
		}
		if b.expr != "" {
			if expr.IsUnresolved(val) {
				return nil, true
			}
			if bv, ok := val.(expr.BoolValue); ok && r.keepTrue && bool(bv) {
				return nil, true
			}
		}
		if b.expr == "" || val.Truth() {
			return b, false
		}
	}
	return nil, false
}

// blockTrim keeps the line structure of the document: tags on their own
// line take their line break with them, inline tags leave the surrounding
// text untouched.
type blockTrim struct{}

func (blockTrim) pattern() *regexp.Regexp { return lexical.Conditions }

func (blockTrim) orphan(e *Engine, keyword string) error {
	e.logger.Error(capitalize(keyword)+" block must have a preceding if block", e.attrs()...)
	return nil
}

func (blockTrim) splice(content string, g *conditionGroup, sel *branch) (string, int) {
	left := content[:g.start()]
	result := blockResult(content, g, sel)
	next := len(left) + len(result) - len(tailLinebreak(g.last().rawEnd))
	return left + result + content[g.end():], max(next, 0)
}

func blockResult(content string, g *conditionGroup, sel *branch) string {
	if sel == nil {
		head := headLinebreak(g.first().rawStart)
		tail := tailLinebreak(g.last().rawEnd)
		if g.isBlock() {
			return newline(head)
		}
		if head != "" && tail != "" {
			// Both tags took a line break; keep only one.
			return strings.TrimPrefix(head, newline(head)) + tail
		}
		return head + tail
	}

	body := content[sel.start:sel.end]
	if g.isBlock() {
		if head := headLinebreak(sel.rawStart); head != "" {
			body = newline(head) + body
		}
		if tail := tailLinebreak(sel.rawEnd); tail != "" {
			body += newline(tail)
		}
		return body
	}
	return headLinebreak(g.first().rawStart) + body + tailLinebreak(g.last().rawEnd)
}

func (blockTrim) record(sm sourcemap.Patcher, content string, g *conditionGroup, sel *branch) {
	lines := sourcemap.Lines(content)
	from := g.start() + 1
	if head := headLinebreak(g.first().rawStart); head != "" {
		from = g.start() + len(newline(head))
	}
	source := sourcemap.Locate(from, g.end()-1, lines)
	if source.Start == source.End {
		return
	}
	if sel == nil {
		sm.Patch(sourcemap.Tx{Delete: []sourcemap.Point{source}})
		return
	}
	kept := sourcemap.Locate(sel.start, sel.end, lines)
	sm.Patch(sourcemap.Tx{Delete: []sourcemap.Point{
		{Start: kept.End + 1, End: source.End},
		{Start: source.Start, End: kept.Start - 1},
	}})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
