package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value is a value produced by the evaluator. It defines string conversion
// and truthiness semantics.
type Value interface {
	String() string
	Truth() bool
}

// NoneValue represents a missing or null value.
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }

type unresolvedValue struct{}

func (unresolvedValue) String() string { return "" }
func (unresolvedValue) Truth() bool    { return false }

// Unresolved is returned in strict mode when an expression refers to a
// variable that is not defined.
var Unresolved Value = unresolvedValue{}

// IsUnresolved reports whether v is the Unresolved sentinel.
func IsUnresolved(v Value) bool {
	_, ok := v.(unresolvedValue)
	return ok
}

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }

// IntValue wraps an integer (64-bit).
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }

// FloatValue wraps a float (64-bit).
type FloatValue float64

func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'f', -1, 64) }
func (f FloatValue) Truth() bool    { return float64(f) != 0 && !math.IsNaN(float64(f)) }

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(string(s)) > 0 }

// ListValue wraps a list of values. Lists are truthy even when empty.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}
func (l ListValue) Truth() bool { return true }

// DictValue wraps a string-keyed dictionary of values. Dictionaries are
// truthy even when empty.
type DictValue map[string]Value

func (d DictValue) String() string { return "{...}" }
func (d DictValue) Truth() bool    { return true }

// FromGo converts a Go value to a Value.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return IntValue(int64(t))
	case uint64:
		return IntValue(int64(t))
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(string(t))
	case []any:
		out := make(ListValue, len(t))
		for i, item := range t {
			out[i] = FromGo(item)
		}
		return out
	case map[string]any:
		out := make(DictValue, len(t))
		for k, item := range t {
			out[k] = FromGo(item)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		// Only string keys are addressable from templates.
		if rv.Type().Key().Kind() == reflect.String {
			out := DictValue{}
			it := rv.MapRange()
			for it.Next() {
				out[it.Key().String()] = FromGo(it.Value().Interface())
			}
			return out
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16:
		return IntValue(rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return IntValue(int64(rv.Uint()))
	}
	return StringValue(fmt.Sprintf("%v", v))
}

// ToGo converts a Value back to plain Go data: nil, bool, int64, float64,
// string, []any and map[string]any.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, NoneValue, unresolvedValue:
		return nil
	case BoolValue:
		return bool(t)
	case IntValue:
		return int64(t)
	case FloatValue:
		return float64(t)
	case StringValue:
		return string(t)
	case ListValue:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToGo(item)
		}
		return out
	case DictValue:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ToGo(item)
		}
		return out
	}
	return v.String()
}

// Iterate returns the elements of a list. Anything else is not iterable.
func Iterate(v Value) ([]Value, error) {
	if l, ok := v.(ListValue); ok {
		out := make([]Value, len(l))
		copy(out, l)
		return out, nil
	}
	return nil, fmt.Errorf("not iterable: %T", v)
}

func number(v Value) (float64, bool) {
	switch t := v.(type) {
	case IntValue:
		return float64(t), true
	case FloatValue:
		return float64(t), true
	}
	return 0, false
}
