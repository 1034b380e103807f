package liquid

import (
	"fmt"
	"strings"

	"github.com/neurodesk/liquid/pkg/expr"
	"github.com/neurodesk/liquid/pkg/frontmatter"
	"github.com/neurodesk/liquid/pkg/sourcemap"
)

// Document resolves a whole document: the string values of its frontmatter
// and then its body. When sm is not nil it follows the document through the
// rewrite, including any change in the frontmatter's line count.
func (e *Engine) Document(input string, vars map[string]any, sm *sourcemap.SourceMap) (string, error) {
	doc, err := frontmatter.Extract(input)
	if err != nil {
		return "", e.wrap(err)
	}
	if doc.Duplicates {
		e.logger.Warn("Frontmatter repeats a key, the last value wins", e.attrs()...)
	}

	scope := expr.Vars(vars)
	meta, err := e.value(doc.Meta, scope)
	if err != nil {
		return "", err
	}
	composed, err := frontmatter.Compose(meta.(map[string]any), "")
	if err != nil {
		return "", e.wrap(err)
	}

	p := pass{scope: scope}
	if sm != nil {
		after := strings.Count(composed, "\n")
		if doc.Raw != "" {
			// Both closing delimiters keep their origin; added or removed
			// lines are accounted for just above them.
			closing := sourcemap.LineCount(strings.TrimSuffix(doc.Raw, "\n"))
			switch {
			case after == 0:
				sm.Patch(sourcemap.Tx{Delete: []sourcemap.Point{{Start: 1, End: closing}}})
			case after < closing:
				sm.Patch(sourcemap.Tx{Delete: []sourcemap.Point{{Start: after, End: closing - 1}}})
			case after > closing:
				sm.Patch(sourcemap.Tx{Offset: []sourcemap.Offset{{From: closing, Delta: after - closing}}})
			}
		}
		p.sm = sm.Shift(after)
	}

	body, err := e.snippet(doc.Body, p)
	if err != nil {
		return "", err
	}
	return composed + body, nil
}

// Value resolves every string inside v, which is usually data decoded from
// YAML or JSON. A string that is a single {{ expr }} becomes the typed value
// of expr.
func (e *Engine) Value(v any, vars map[string]any) (any, error) {
	return e.value(v, expr.Vars(vars))
}

func (e *Engine) value(v any, scope expr.Scope) (any, error) {
	switch t := v.(type) {
	case string:
		if val, ok := e.substituteValue(t, scope); ok {
			return val, nil
		}
		return e.snippet(t, pass{scope: scope})
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			r, err := e.value(item, scope)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			r, err := e.value(item, scope)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func (e *Engine) wrap(err error) error {
	if e.path != "" {
		return fmt.Errorf("%s: %w", e.path, err)
	}
	return err
}
