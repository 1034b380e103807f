package starlark

import (
	"go.starlark.net/starlark"

	"github.com/neurodesk/liquid/pkg/expr"
)

// ConvertToStarlark converts a template value to a Starlark value
func ConvertToStarlark(val expr.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case expr.StringValue:
		return starlark.String(string(v))
	case expr.IntValue:
		return starlark.MakeInt64(int64(v))
	case expr.FloatValue:
		return starlark.Float(float64(v))
	case expr.BoolValue:
		return starlark.Bool(bool(v))
	case expr.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	case expr.DictValue:
		dict := starlark.NewDict(len(v))
		for key, value := range v {
			// SetKey only fails for unhashable keys or frozen dicts.
			_ = dict.SetKey(starlark.String(key), ConvertToStarlark(value))
		}
		return dict
	case expr.NoneValue:
		return starlark.None
	}
	if expr.IsUnresolved(val) {
		return starlark.None
	}
	return starlark.String(val.String())
}

// ConvertFromStarlark converts a Starlark value to a template value
func ConvertFromStarlark(val starlark.Value) expr.Value {
	if val == nil || val == starlark.None {
		return expr.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return expr.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return expr.IntValue(i)
		}
		// Too large for int64.
		return expr.StringValue(v.String())
	case starlark.Float:
		return expr.FloatValue(float64(v))
	case starlark.Bool:
		return expr.BoolValue(bool(v))
	case starlark.Indexable:
		// Lists and tuples.
		items := make(expr.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = ConvertFromStarlark(v.Index(i))
		}
		return items
	case *starlark.Dict:
		dict := make(expr.DictValue)
		for _, item := range v.Items() {
			key, value := item[0], item[1]
			if keyStr, ok := key.(starlark.String); ok {
				dict[string(keyStr)] = ConvertFromStarlark(value)
			} else {
				dict[key.String()] = ConvertFromStarlark(value)
			}
		}
		return dict
	}
	return expr.StringValue(val.String())
}
