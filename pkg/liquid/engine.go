// Package liquid resolves the control flow of documentation templates:
// {% if %} and {% for %} blocks and {{ }} substitutions, while keeping a
// source map from output lines to the lines of the original file.
package liquid

import (
	"github.com/neurodesk/liquid/pkg/expr"
	"github.com/neurodesk/liquid/pkg/sourcemap"
)

// Engine renders snippets and documents with fixed settings. An Engine is
// safe for concurrent use as long as each call gets its own source map.
type Engine struct {
	logger    Logger
	settings  Settings
	evaluator *expr.Evaluator
	path      string
}

// New creates an engine. A nil logger logs to slog.Default().
func New(logger Logger, settings Settings) *Engine {
	return &Engine{
		logger:    defaultLogger(logger),
		settings:  settings,
		evaluator: expr.NewEvaluator(),
	}
}

// WithPath returns a copy of the engine that names path in its reports.
func (e *Engine) WithPath(path string) *Engine {
	c := *e
	c.path = path
	return &c
}

// pass is the state of one invocation of the pipeline. Loop bodies get a
// pass of their own with a deeper depth and no source map.
type pass struct {
	scope expr.Scope
	sm    sourcemap.Patcher
	depth int
}

// Snippet resolves cycles, conditions and substitutions in input. When sm
// is not nil every rewrite is recorded in it.
func (e *Engine) Snippet(input string, vars map[string]any, sm *sourcemap.SourceMap) (string, error) {
	p := pass{scope: expr.Vars(vars)}
	if sm != nil {
		p.sm = sm
	}
	return e.snippet(input, p)
}

func (e *Engine) snippet(input string, p pass) (string, error) {
	if p.depth > e.settings.maxDepth() {
		e.logger.Error("Maximum nesting depth exceeded", e.attrs("depth", p.depth)...)
		return input, nil
	}

	var code *codeGuard
	if !e.settings.ConditionsInCode {
		code = &codeGuard{}
		input = code.save(input, func(fragment string) string {
			if e.settings.Substitutions {
				return e.substitute(fragment, p.scope)
			}
			return fragment
		})
	}

	var err error
	if e.settings.Cycles {
		if input, err = e.cycles(input, p); err != nil {
			return "", err
		}
	}
	if e.settings.Conditions != ConditionsOff {
		if input, err = e.conditions(input, p); err != nil {
			return "", err
		}
	}
	if e.settings.Substitutions {
		input = e.substitute(input, p.scope)
	}

	if code != nil {
		input = code.repair(input)
	}
	return input, nil
}

// attrs appends the document path to a report's attributes.
func (e *Engine) attrs(args ...any) []any {
	if e.path != "" {
		args = append(args, "path", e.path)
	}
	return args
}
