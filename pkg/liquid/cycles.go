package liquid

import (
	"strings"

	"github.com/neurodesk/liquid/pkg/expr"
	"github.com/neurodesk/liquid/pkg/lexical"
	"github.com/neurodesk/liquid/pkg/sourcemap"
)

// cycle is an open for...endfor block.
type cycle struct {
	name       string
	collection string
	valid      bool

	start        int // offset of the for tag
	contentStart int // first byte after the for tag and its line break
	contentEnd   int // offset of the endfor match, including its line break
	end          int // one past the endfor tag

	// multiline is set when the for tag ends its line. Iterations are then
	// joined with line breaks.
	multiline bool
}

// cycles expands the outermost for blocks of input. Nested blocks are part
// of the loop body and are expanded when the body is rendered.
func (e *Engine) cycles(input string, p pass) (string, error) {
	sc := lexical.NewScanner(lexical.Cycles, input)
	var stack []*cycle
	skipped := 0

	for {
		m, ok := sc.Next()
		if !ok {
			break
		}
		tag, ok := m.Tag()
		if !ok {
			continue
		}

		switch {
		case m.Group == "for" && tag.Keyword == "for":
			if len(stack) > 0 {
				skipped++
				continue
			}
			c := &cycle{
				start:        m.Start,
				contentStart: m.End,
				multiline:    strings.HasSuffix(m.Raw, "\n"),
			}
			c.name, c.collection, c.valid = lexical.ParseFor(tag.Args)
			if !c.valid {
				e.logger.Error("Incorrect syntax in for block", e.attrs("args", tag.Args)...)
			}
			stack = append(stack, c)
		case m.Group == "endfor" && tag.Keyword == "endfor":
			if skipped > 0 {
				skipped--
				continue
			}
			if len(stack) == 0 {
				e.logger.Error("For block must be opened before close", e.attrs()...)
				continue
			}
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c.contentEnd = m.Start
			c.end = m.End

			var (
				next int
				err  error
			)
			if input, next, err = e.expand(input, c, p); err != nil {
				return "", err
			}
			sc.Seek(input, next)
		}
	}

	if len(stack) != 0 {
		e.logger.Error("For block must be closed", e.attrs()...)
	}
	return input, nil
}

// expand replaces the block c of content with one rendering of its body per
// element of the collection.
func (e *Engine) expand(content string, c *cycle, p pass) (string, int, error) {
	body := content[c.contentStart:c.contentEnd]

	var items []expr.Value
	if c.valid {
		val, err := e.evaluator.Eval(c.collection, p.scope, false)
		if err == nil {
			items, err = expr.Iterate(val)
		}
		if err != nil {
			e.logger.Error(c.collection+" is undefined or not iterable", e.attrs("error", err)...)
			items = nil
		}
	}

	results := make([]string, 0, len(items))
	for _, item := range items {
		r, err := e.snippet(body, pass{
			scope: expr.Bind(p.scope, c.name, expr.ToGo(item)),
			depth: p.depth + 1,
		})
		if err != nil {
			return "", 0, err
		}
		results = append(results, strings.TrimRight(r, " "))
	}

	sep := ""
	if c.multiline {
		sep = "\n"
	}
	res := strings.Join(results, sep)

	left := preparedLeft(content, c.start, res)
	shift := collapseShift(left, content, c.end, res)

	if p.sm != nil && c.multiline {
		lines := sourcemap.Lines(content)
		if res == "" {
			block := sourcemap.Locate(c.start, c.end, lines)
			if shift == 0 {
				// Text around the block stays on the line of the for tag.
				block.Start++
			}
			if block.Start <= block.End {
				p.sm.Patch(sourcemap.Tx{Delete: []sourcemap.Point{block}})
			}
		} else {
			p.sm.Patch(sourcemap.Tx{
				Delete: []sourcemap.Point{
					sourcemap.Locate(c.start, c.contentStart-1, lines),
					sourcemap.Locate(c.contentEnd+1, c.end, lines),
				},
				Replace: []sourcemap.Replace{{
					At:     sourcemap.Locate(c.contentStart, c.contentStart, lines).Start,
					Source: body,
					Result: res,
				}},
			})
		}
	}

	res = strings.TrimPrefix(res, " ")

	head := left + res
	return head + content[c.end+shift:], len(head), nil
}
