package liquid

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neurodesk/liquid/pkg/sourcemap"
)

func TestDocument(t *testing.T) {
	input := "---\ntitle: {{ product }}\ncount: {{ n }}\n---\nHello {{ product }}\n"
	vars := map[string]any{"product": "Docs", "n": 3}

	got, err := New(&recorder{}, DefaultSettings()).Document(input, vars, nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if want := "---\ncount: 3\ntitle: Docs\n---\nHello Docs\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDocumentWithoutFrontmatter(t *testing.T) {
	got, err := New(&recorder{}, DefaultSettings()).Document("{% if a %}A{% endif %}B", map[string]any{"a": true}, nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got != "AB" {
		t.Fatalf("got %q, want %q", got, "AB")
	}
}

func TestDocumentSourceMap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		vars  map[string]any
		out   string
		want  map[string]string
	}{
		{
			name:  "frontmatter shrinks",
			input: "---\n# comment\ntitle: x\n---\n{% if flag %}\nYes\n{% endif %}\nEnd",
			vars:  map[string]any{"flag": true},
			out:   "---\ntitle: x\n---\nYes\nEnd",
			want:  map[string]string{"1": "1", "2": "2", "3": "4", "4": "6", "5": "8"},
		},
		{
			name:  "frontmatter grows",
			input: "---\ntags: [a, b]\n---\nBody\n",
			out:   "---\ntags:\n  - a\n  - b\n---\nBody\n",
			want:  map[string]string{"1": "1", "2": "2", "5": "3", "6": "4", "7": "5"},
		},
		{
			name:  "blank lines removed",
			input: "---\ntitle:    x\n\n\n---\nBody",
			out:   "---\ntitle: x\n---\nBody",
			want:  map[string]string{"1": "1", "2": "2", "3": "5", "4": "6"},
		},
		{
			name:  "empty frontmatter dropped",
			input: "---\n{}\n---\nBody",
			out:   "Body",
			want:  map[string]string{"1": "4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := sourcemap.New(tt.input)
			got, err := New(&recorder{}, DefaultSettings()).Document(tt.input, tt.vars, sm)
			if err != nil {
				t.Fatalf("Document: %v", err)
			}
			if got != tt.out {
				t.Fatalf("got %q, want %q", got, tt.out)
			}
			if diff := cmp.Diff(tt.want, sm.Dump()); diff != "" {
				t.Fatalf("dump mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDocumentDuplicateKeys(t *testing.T) {
	log := &recorder{}
	got, err := New(log, DefaultSettings()).Document("---\na: 1\na: 2\n---\nbody", nil, nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if want := "---\na: 2\n---\nbody"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if log.count("warn") != 1 {
		t.Fatalf("expected one warning, got %+v", log.entries)
	}
}

func TestDocumentInvalidFrontmatter(t *testing.T) {
	_, err := New(&recorder{}, DefaultSettings()).WithPath("bad.md").Document("---\na: [b\n---\n", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestValue(t *testing.T) {
	in := map[string]any{
		"count": "{{ n }}",
		"list":  []any{"x {{ name }}", 2, "{% if flag %}on{% else %}off{% endif %}"},
		"raw":   true,
		"keep":  "{{ missing }}",
	}
	vars := map[string]any{"n": 5, "name": "Bob", "flag": false}

	got, err := New(&recorder{}, DefaultSettings()).Value(in, vars)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	want := map[string]any{
		"count": int64(5),
		"list":  []any{"x Bob", 2, "off"},
		"raw":   true,
		"keep":  "{{ missing }}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Value mismatch (-want +got):\n%s", diff)
	}
}
