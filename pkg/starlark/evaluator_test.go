package starlark

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"

	"github.com/neurodesk/liquid/pkg/expr"
)

func TestConvertToStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    expr.Value
		expected starlark.Value
	}{
		{
			name:     "string value",
			input:    expr.StringValue("hello"),
			expected: starlark.String("hello"),
		},
		{
			name:     "int value",
			input:    expr.IntValue(42),
			expected: starlark.MakeInt64(42),
		},
		{
			name:     "float value",
			input:    expr.FloatValue(3.14),
			expected: starlark.Float(3.14),
		},
		{
			name:     "bool value",
			input:    expr.BoolValue(true),
			expected: starlark.Bool(true),
		},
		{
			name:     "none value",
			input:    expr.NoneValue{},
			expected: starlark.None,
		},
		{
			name:     "unresolved value",
			input:    expr.Unresolved,
			expected: starlark.None,
		},
		{
			name:     "nil value",
			input:    nil,
			expected: starlark.None,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToStarlark(tt.input)
			if result.String() != tt.expected.String() {
				t.Errorf("ConvertToStarlark() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestConvertFromStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    starlark.Value
		expected expr.Value
	}{
		{"string value", starlark.String("hello"), expr.StringValue("hello")},
		{"int value", starlark.MakeInt64(42), expr.IntValue(42)},
		{"float value", starlark.Float(3.5), expr.FloatValue(3.5)},
		{"bool value", starlark.Bool(false), expr.BoolValue(false)},
		{"none value", starlark.None, expr.NoneValue{}},
		{"tuple", starlark.Tuple{starlark.String("a"), starlark.MakeInt(1)}, expr.ListValue{expr.StringValue("a"), expr.IntValue(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, ConvertFromStarlark(tt.input)); diff != "" {
				t.Errorf("ConvertFromStarlark() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDictConversion(t *testing.T) {
	dict := expr.DictValue{
		"key1": expr.StringValue("value1"),
		"key2": expr.ListValue{expr.IntValue(1), expr.IntValue(2)},
	}

	converted, ok := ConvertToStarlark(dict).(*starlark.Dict)
	if !ok {
		t.Fatalf("Expected *starlark.Dict, got %T", ConvertToStarlark(dict))
	}
	if converted.Len() != 2 {
		t.Errorf("Expected dict length 2, got %d", converted.Len())
	}
	if diff := cmp.Diff(expr.Value(dict), ConvertFromStarlark(converted)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorBasic(t *testing.T) {
	eval := NewEvaluator(nil)

	result, err := eval.Eval("2 + 3")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "5" {
		t.Errorf("Expected '5', got %v", result.String())
	}
}

func TestEvaluatorWithGlobals(t *testing.T) {
	eval := NewEvaluator(nil)
	eval.SetGlobal("test_var", expr.StringValue("hello"))

	result, err := eval.Eval("test_var + ' world'")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "hello world" {
		t.Errorf("Expected 'hello world', got %v", result.String())
	}
}

func TestEvaluatorErrors(t *testing.T) {
	eval := NewEvaluator(nil)
	if _, err := eval.Eval("undefined_name + 1"); err == nil {
		t.Errorf("expected error for undefined name")
	}
	if _, err := eval.ExecString("x = "); err == nil {
		t.Errorf("expected error for syntax error")
	}
}

func TestPresetExport(t *testing.T) {
	eval := NewEvaluator(nil)
	eval.LoadVars(map[string]any{"product": "docs", "debug": true})

	script := `
def title(name):
    if debug:
        return name.upper() + " (draft)"
    return name.upper()

heading = title(product)
platforms = ["linux", "mac"]
limits = {"users": 10}
_private = 1
set_variable("product-name", product + "-site")
`
	if _, err := eval.ExecString(script); err != nil {
		t.Fatalf("ExecString error: %v", err)
	}

	got, ok := eval.GetGlobal("heading")
	if !ok {
		t.Fatalf("Expected 'heading' to be accessible via GetGlobal")
	}
	if got.String() != "DOCS (draft)" {
		t.Errorf("Expected 'DOCS (draft)', got %q", got.String())
	}

	want := map[string]any{
		"product":      "docs",
		"debug":        true,
		"heading":      "DOCS (draft)",
		"platforms":    []any{"linux", "mac"},
		"limits":       map[string]any{"users": int64(10)},
		"product-name": "docs-site",
	}
	if diff := cmp.Diff(want, eval.Export()); diff != "" {
		t.Errorf("Export() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvBuiltin(t *testing.T) {
	t.Setenv("LIQUID_TEST_VALUE", "from-env")
	eval := NewEvaluator(nil)

	got, err := eval.Eval(`env("LIQUID_TEST_VALUE")`)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if got.String() != "from-env" {
		t.Errorf("got %q, want %q", got.String(), "from-env")
	}

	got, err = eval.Eval(`env("LIQUID_TEST_MISSING", default="fallback")`)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if got.String() != "fallback" {
		t.Errorf("got %q, want %q", got.String(), "fallback")
	}
}
