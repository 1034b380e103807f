package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Filters is a registry of filter functions applied with the pipe syntax,
// e.g. name | upper or list | join: ", ".
type Filters map[string]func(val Value, args []Value) (Value, error)

// DefaultFilters provides a small set of common filters.
func DefaultFilters() Filters {
	return Filters{
		"upper": func(val Value, _ []Value) (Value, error) { return StringValue(strings.ToUpper(val.String())), nil },
		"lower": func(val Value, _ []Value) (Value, error) { return StringValue(strings.ToLower(val.String())), nil },
		"trim":  func(val Value, _ []Value) (Value, error) { return StringValue(strings.TrimSpace(val.String())), nil },
		"capitalize": func(val Value, _ []Value) (Value, error) {
			s := val.String()
			r, size := utf8.DecodeRuneInString(s)
			if size == 0 {
				return StringValue(""), nil
			}
			return StringValue(string(unicode.ToUpper(r)) + s[size:]), nil
		},
		"default": func(val Value, args []Value) (Value, error) {
			if len(args) < 1 || val.Truth() {
				return val, nil
			}
			return args[0], nil
		},
		"join": func(val Value, args []Value) (Value, error) {
			sep := ","
			if len(args) > 0 {
				sep = args[0].String()
			}
			l, ok := val.(ListValue)
			if !ok {
				return StringValue(val.String()), nil
			}
			parts := make([]string, len(l))
			for i, v := range l {
				parts[i] = v.String()
			}
			return StringValue(strings.Join(parts, sep)), nil
		},
		"length": func(val Value, _ []Value) (Value, error) {
			switch t := val.(type) {
			case ListValue:
				return IntValue(len(t)), nil
			case DictValue:
				return IntValue(len(t)), nil
			case StringValue:
				return IntValue(utf8.RuneCountInString(string(t))), nil
			}
			return IntValue(0), nil
		},
		"first": func(val Value, _ []Value) (Value, error) {
			if l, ok := val.(ListValue); ok && len(l) > 0 {
				return l[0], nil
			}
			return NoneValue{}, nil
		},
		"last": func(val Value, _ []Value) (Value, error) {
			if l, ok := val.(ListValue); ok && len(l) > 0 {
				return l[len(l)-1], nil
			}
			return NoneValue{}, nil
		},
	}
}
