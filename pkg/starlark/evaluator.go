// Package starlark runs variable presets written in Starlark. A preset is a
// script whose top-level globals become template variables.
package starlark

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/neurodesk/liquid/pkg/expr"
	"go.starlark.net/starlark"
)

// Evaluator provides Starlark evaluation over template values.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

// NewEvaluator creates a new Starlark evaluator. Scripts print through
// logger; a nil logger uses slog.Default().
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Evaluator{
		thread:  &starlark.Thread{Name: "liquid"},
		globals: make(starlark.StringDict),
	}
	e.thread.Print = func(_ *starlark.Thread, msg string) {
		logger.Info(msg, "source", "starlark")
	}
	e.builtins = e.createBuiltins(logger)
	return e
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, value expr.Value) {
	e.globals[name] = ConvertToStarlark(value)
}

// LoadVars makes every entry of vars a global.
func (e *Evaluator) LoadVars(vars map[string]any) {
	for key, value := range vars {
		e.SetGlobal(key, expr.FromGo(value))
	}
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	maps.Copy(predeclared, e.builtins)
	maps.Copy(predeclared, e.globals)
	return predeclared
}

// Eval evaluates a Starlark expression.
func (e *Evaluator) Eval(src string) (expr.Value, error) {
	val, err := starlark.Eval(e.thread, "<eval>", src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return ConvertFromStarlark(val), nil
}

// ExecFile executes a Starlark file. src may be nil, in which case the file
// is read from disk. The globals the file defines are kept for later calls.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	maps.Copy(e.globals, globals)
	return globals, nil
}

// ExecString executes a Starlark script from a string
func (e *Evaluator) ExecString(script string) (starlark.StringDict, error) {
	return e.ExecFile("<script>", script)
}

// GetGlobal retrieves a global variable.
func (e *Evaluator) GetGlobal(name string) (expr.Value, bool) {
	if val, ok := e.globals[name]; ok {
		return ConvertFromStarlark(val), true
	}
	return nil, false
}

// Export returns the exportable globals as plain Go values.
func (e *Evaluator) Export() map[string]any {
	vars := make(map[string]any)
	for key, value := range e.globals {
		if !isExportable(key, value) {
			continue
		}
		vars[key] = expr.ToGo(ConvertFromStarlark(value))
	}
	return vars
}

// isExportable skips functions and names starting with an underscore.
func isExportable(key string, value starlark.Value) bool {
	if key == "" || key[0] == '_' {
		return false
	}
	_, callable := value.(starlark.Callable)
	return !callable
}
