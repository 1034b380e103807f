package liquid

import (
	"testing"
)

func TestConditions(t *testing.T) {
	alice := map[string]any{"user": map[string]any{"name": "Alice"}}

	tests := []struct {
		name  string
		input string
		vars  map[string]any
		want  string
	}{
		{
			name:  "if only",
			input: "Prefix{% if user %} Inline if {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix Inline if Postfix",
		},
		{
			name:  "false if",
			input: "Prefix{% if foo %} Inline if{% endif %} Postfix",
			vars:  map[string]any{"foo": false},
			want:  "Prefix Postfix",
		},
		{
			name:  "if else positive",
			input: "Prefix{% if user %} Inline if {% else %} else {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix Inline if Postfix",
		},
		{
			name:  "if else negative",
			input: "Prefix{% if yandex %} Inline if {% else %} else {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix else Postfix",
		},
		{
			name:  "if elsif",
			input: "Prefix{% if yandex %} Inline if {% elsif user %} else {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix else Postfix",
		},
		{
			name:  "block",
			input: "Prefix\n{% if test %}\n    How are you?\n{% endif %}\nPostfix\n",
			vars:  map[string]any{"test": true},
			want:  "Prefix\n    How are you?\nPostfix\n",
		},
		{
			name:  "block negative",
			input: "Prefix\n{% if test %}\n    How are you?\n{% endif %}\nPostfix\n",
			vars:  map[string]any{"test": false},
			want:  "Prefix\nPostfix\n",
		},
		{
			name:  "two blocks in a row",
			input: "{% if test %}\n    How are you?\n{% endif %}\n{% if test %}\n    How are you?\n{% endif %}",
			vars:  map[string]any{"test": true},
			want:  "    How are you?\n    How are you?",
		},
		{
			name:  "inside list item",
			input: "1. list item 1\n\n    {% if true %}Test{% endif %}",
			want:  "1. list item 1\n\n    Test",
		},
		{
			name:  "at start of note",
			input: "{% note alert %}\n\n{% if locale == 'ru' %}You can't use the public geofence names.{% endif %}Test\n\n{% endnote %}",
			want:  "{% note alert %}\n\nTest\n\n{% endnote %}",
		},
		{
			name:  "at end of note",
			input: "{% note alert %}\n\nTest{% if locale == 'ru' %}You can't use the public geofence names.{% endif %}\n\n{% endnote %}",
			want:  "{% note alert %}\n\nTest\n\n{% endnote %}",
		},
		{
			name:  "falsy block after truthy block",
			input: "Start\n\nBefore\n{% if product == \"A\" %}\nTruthly\n{% endif %}\n{% if product == \"B\" %}\nFalsy\n{% endif %}\nAfter\n\nEnd",
			vars:  map[string]any{"product": "A"},
			want:  "Start\n\nBefore\nTruthly\nAfter\n\nEnd",
		},
		{
			name:  "falsy inline after truthy inline",
			input: "{% if product == \"A\" %}A{% endif %}\n{% if product == \"B\" %}B{% endif %}\nC",
			vars:  map[string]any{"product": "A"},
			want:  "A\nC",
		},
		{
			name: "around other tags",
			input: "* Title:\n" +
				"    * {% include [A](./A.md) %}\n" +
				"{% if audience != \"internal\" %}\n" +
				"* {% include [B](./B.md) %}\n" +
				"{% endif %}\n" +
				"* {% include [C](./C.md) %}",
			vars: map[string]any{"audience": "other"},
			want: "* Title:\n" +
				"    * {% include [A](./A.md) %}\n" +
				"* {% include [B](./B.md) %}\n" +
				"* {% include [C](./C.md) %}",
		},
		{
			name:  "cut with blank lines",
			input: "{% cut \"Title\" %}\n\n{% if locale == 'ru' %}\n\na\n\n{% endif %}\n\n{% endcut %}",
			vars:  map[string]any{"locale": "ru"},
			want:  "{% cut \"Title\" %}\n\n\na\n\n\n{% endcut %}",
		},
		{
			name:  "nested positive",
			input: "Prefix{% if user %} Before nested if{% if user.name == 'Alice' %} nested if {% endif %}After nested if {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix Before nested if nested if After nested if Postfix",
		},
		{
			name:  "nested negative",
			input: "Prefix{% if user %} Before nested if {% if user.name == 'Alice' %} nested if {% endif %} After nested if {% endif %}Postfix",
			vars:  map[string]any{"user": map[string]any{"name": "Bob"}},
			want:  "Prefix Before nested if  After nested if Postfix",
		},
		{
			name:  "elsif chain",
			input: "Prefix{% if yandex %} if {% elsif user.name == 'Bob' %} Bob {% elsif user.name == 'Alice' %} Alice {% endif %}Postfix",
			vars:  alice,
			want:  "Prefix Alice Postfix",
		},
		{
			name:  "crlf falsy block",
			input: "Prefix\r\n\r\n\r\n{% if list contains \"non-existent\" %}\r\n\r\n    Content\r\n\r\n{% endif %}\r\n\r\nPostfix",
			vars:  map[string]any{"list": []any{"item"}},
			want:  "Prefix\r\n\r\n\r\n\r\nPostfix",
		},
		{
			name: "crlf truthy block",
			input: "#### %%%1%%%\r\n\r\n{% if list contains \"item\" %}\r\n\r\n    %%%2%%%\r\n\r\n{% endif %}\r\n\r\n#### %%%3%%%",
			vars:  map[string]any{"list": []any{"item"}},
			want:  "#### %%%1%%%\r\n\r\n\r\n    %%%2%%%\r\n\r\n\r\n#### %%%3%%%",
		},
		{
			name:  "unknown tag kept",
			input: "{% include [A](./A.md) %}",
			want:  "{% include [A](./A.md) %}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := render(t, DefaultSettings(), tt.input, tt.vars)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConditionOperators(t *testing.T) {
	tests := []struct {
		cond string
		age  int
		want string
	}{
		{"user.age >= 18", 18, "yes"},
		{"user.age >= 18", 1, "no"},
		{"user.age > 18", 21, "yes"},
		{"user.age > 18", 1, "no"},
		{"user.age <= 18", 18, "yes"},
		{"user.age <= 18", 21, "no"},
		{"user.age < 18", 1, "yes"},
		{"user.age < 18", 21, "no"},
		{"user and user.age >= 18", 18, "yes"},
		{"user and user.age >= 18", 1, "no"},
		{"user.age < 18 or user.age >= 21", 21, "yes"},
		{"user.age < 18 or user.age >= 21", 20, "no"},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			input := "{% if " + tt.cond + " %}yes{% else %}no{% endif %}"
			got, _ := render(t, DefaultSettings(), input, map[string]any{"user": map[string]any{"age": tt.age}})
			if got != tt.want {
				t.Fatalf("age %d: got %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestConditionsStrict(t *testing.T) {
	s := DefaultSettings()
	s.Conditions = ConditionsStrict
	alice := map[string]any{"user": map[string]any{"name": "Alice"}}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unresolved if",
			input: `Prefix{% if name != "test" %} Inline if {% endif %}Postfix`,
			want:  `Prefix{% if name != "test" %} Inline if {% endif %}Postfix`,
		},
		{
			name:  "unresolved elsif",
			input: "Prefix\n{% if user.name == \"Test\" %}\nTest\n{% elsif user.lastname == \"Markovna\" %}\nMarkovna\n{% endif %}\nPostfix",
			want:  "Prefix\n{% if user.name == \"Test\" %}\nTest\n{% elsif user.lastname == \"Markovna\" %}\nMarkovna\n{% endif %}\nPostfix",
		},
		{
			name: "nested unresolved stays in kept branch",
			input: "Prefix\n" +
				"{% if user.name == \"Alice\" %}\n" +
				"Alice\n" +
				"    {% if user.lastname == \"Markovna\" %}\n" +
				"Ok\n" +
				"    {% endif %}\n" +
				"{% else %}\n" +
				"Bad\n" +
				"{% endif %}\n" +
				"Postfix",
			want: "Prefix\n" +
				"Alice\n" +
				"    {% if user.lastname == \"Markovna\" %}\n" +
				"Ok\n" +
				"    {% endif %}\n" +
				"Postfix",
		},
		{
			name:  "resolved by default filter",
			input: "{% if name | default: 'x' == 'x' %}A{% endif %}",
			want:  "A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := render(t, s, tt.input, alice)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeepConditionSyntaxOnTrue(t *testing.T) {
	s := DefaultSettings()
	s.KeepConditionSyntaxOnTrue = true
	vars := map[string]any{"flag": true, "name": "x"}

	got, _ := render(t, s, "{% if flag %}A{% endif %}", vars)
	if want := "{% if flag %}A{% endif %}"; got != want {
		t.Fatalf("boolean true: got %q, want %q", got, want)
	}
	got, _ = render(t, s, "{% if name %}A{% endif %}", vars)
	if got != "A" {
		t.Fatalf("truthy string: got %q, want %q", got, "A")
	}
}

func TestConditionReports(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unmatched endif", input: "{% endif %}", want: "If block must be opened before close"},
		{name: "unclosed if", input: "{% if test %}content", want: "Condition block must be closed"},
		{name: "orphan else", input: "{% else %}content", want: "Else block must have a preceding if block"},
		{name: "orphan elsif", input: "{% elsif test %}content", want: "Elsif block must have a preceding if block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, log := render(t, DefaultSettings(), tt.input, map[string]any{"test": true})
			if got != tt.input {
				t.Errorf("got %q, want input unchanged", got)
			}
			if !log.has("error", tt.want) {
				t.Fatalf("missing %q, got %+v", tt.want, log.entries)
			}
		})
	}
}
