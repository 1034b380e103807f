package starlark

import (
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"
)

// createBuiltins returns the functions every preset can call besides the
// Starlark universe.
func (e *Evaluator) createBuiltins(logger *slog.Logger) starlark.StringDict {
	return starlark.StringDict{
		// env(name, default=None) reads an environment variable.
		"env": starlark.NewBuiltin("env", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var def starlark.Value = starlark.None
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
				return nil, err
			}
			if v, ok := os.LookupEnv(name); ok {
				return starlark.String(v), nil
			}
			return def, nil
		}),

		// set_variable(name, value) defines a variable whose name is not a
		// valid Starlark identifier, e.g. "product-name".
		"set_variable": starlark.NewBuiltin("set_variable", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var value starlark.Value
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &name, &value); err != nil {
				return nil, err
			}
			if name == "" {
				return nil, fmt.Errorf("%s: name must not be empty", fn.Name())
			}
			e.globals[name] = value
			logger.Debug("starlark variable set", "name", name)
			return starlark.None, nil
		}),
	}
}
